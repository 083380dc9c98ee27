// Package producer exposes common logic that all Go collectors can use for sending samples updates to synapse
package producer

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Supported producer types
const (
	KafkaType = "kafka"
	RestType  = "rest"
)

// DefaultTimeout is used when the config doesn't set one
const DefaultTimeout = 15 * time.Second

// Producer is an abstraction over how a collector sends samples updates to synapse. Events are keyed by dataset so
// that updates for the same dataset keep their order
type Producer interface {
	Send(datasetID string, event []byte) error
	Close()
}

// Config holds the necessary configuration to set up a producer
type Config struct {
	Addresses []string      `json:"addresses"`
	Timeout   time.Duration `json:"timeout"`
	Topic     string        `json:"topic"`
	Type      string        `json:"type"`
}

// New returns a producer of the type selected in the configuration
func New(conf Config) (Producer, error) {
	if conf.Timeout <= 0 {
		conf.Timeout = DefaultTimeout
	}
	switch conf.Type {
	case KafkaType:
		return NewKafkaProducer(conf)
	case RestType:
		return NewRestProducer(conf)
	default:
		return nil, errors.New(conf.Type + " is not a valid producer type")
	}
}

// reachable returns the first of the given addresses that accepts TCP connections
func reachable(addrs []string, timeout time.Duration) (string, error) {
	for _, addr := range addrs {
		hp, err := hostPort(addr)
		if err != nil {
			continue
		}
		d := net.Dialer{Timeout: timeout}
		conn, err := d.Dial("tcp", hp)
		if err != nil {
			continue
		}
		conn.Close()
		return addr, nil
	}
	return "", fmt.Errorf("none of %s are usable", strings.Join(addrs, ", "))
}

// hostPort turns an address, with or without a scheme, into something that can be dialed. The port can only be left
// out for http and https
func hostPort(addr string) (string, error) {
	if _, _, err := net.SplitHostPort(addr); err == nil && !strings.Contains(addr, "://") {
		return addr, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("%q has no host", addr)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		default:
			return "", fmt.Errorf("%q has no port", addr)
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
