package producer

import (
	"bytes"
	"crypto/tls"
	"errors"
	"math/rand"
	"net/http"
	"time"
)

// RestProducer is a Producer implementation for sending events directly to synapse through its API. Its use is
// discouraged for production setups given that updates for the same dataset can reach different instances out of order
type RestProducer struct {
	endpoints []string
	client    *http.Client
	rnd       *rand.Rand
}

// NewRestProducer checks the provided addresses and creates a rest producer
func NewRestProducer(conf Config) (*RestProducer, error) {
	if _, err := reachable(conf.Addresses, conf.Timeout); err != nil {
		return nil, err
	}
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &RestProducer{
		endpoints: conf.Addresses,
		client:    &http.Client{Transport: tr, Timeout: conf.Timeout},
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Close is a no-op, there is nothing to release
func (rp *RestProducer) Close() {}

// Send posts the given event to one of the defined addresses picked at random
func (rp *RestProducer) Send(datasetID string, event []byte) error {
	i := rp.rnd.Intn(len(rp.endpoints))
	url := rp.endpoints[i] + "/api/v1/datasets/process"
	resp, err := rp.client.Post(url, "application/json", bytes.NewBuffer(event))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return errors.New("received http status " + resp.Status)
	}
	return nil
}
