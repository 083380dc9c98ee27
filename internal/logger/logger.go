// Package logger includes extended JSON logging functionality
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qvantel/synapse/internal/config"
)

var (
	// LogLevel holds the application's current log level
	LogLevel = infoLevel
	// ArtifactID holds the image being used to run the application
	ArtifactID string
	// ServiceName holds the application's name in the service discovery system
	ServiceName = "synapse"

	mu  sync.Mutex
	out io.Writer = os.Stdout
)

const (
	traceLevel   = 5000
	debugLevel   = 10000
	infoLevel    = 20000
	warningLevel = 30000
	errorLevel   = 40000
)

// EventLogData contains the needed information to be rendered as a logstash compatible json event log
type EventLogData struct {
	TimeStamp   string `json:"@timestamp"`
	Version     string `json:"@version"`
	LogType     string `json:"log_type"`
	LogLevel    string `json:"log_level"`
	LevelValue  int    `json:"level_value"`
	ServiceName string `json:"service_name"`
	LoggerName  string `json:"logger_name"`
	ArtifactID  string `json:"artifact_id"`
	TraceToken  string `json:"trace_token"`
	Message     string `json:"message"`
}

func newEvent(timeStamp, loggerName, message, levelName string, levelValue int) *EventLogData {
	return &EventLogData{
		TimeStamp:   timeStamp,
		Version:     "1",
		LogType:     "LOG",
		LogLevel:    levelName,
		LevelValue:  levelValue,
		ServiceName: ServiceName,
		LoggerName:  loggerName,
		ArtifactID:  ArtifactID,
		TraceToken:  "undefined",
		Message:     message,
	}
}

func writeLog(loggerName, message, levelName string, levelValue int) {
	if LogLevel > levelValue {
		return
	}
	now := time.Now()
	data := newEvent(TimeFormated(&now), loggerName, message, levelName, levelValue)
	b, _ := json.Marshal(data)
	// Actors log concurrently, keep lines whole
	mu.Lock()
	fmt.Fprintln(out, string(b))
	mu.Unlock()
}

// Enabled reports whether messages of the given level name would currently be written, useful to skip building
// expensive messages
func Enabled(level string) bool {
	return LogLevel <= levelValue(level)
}

// Trace logs a message to stdout with the TRACE log level
func Trace(message string) {
	writeLog(ServiceName, message, "TRACE", traceLevel)
}

// Tracef is the printf flavour of Trace
func Tracef(format string, args ...interface{}) {
	if LogLevel > traceLevel {
		return
	}
	Trace(fmt.Sprintf(format, args...))
}

// Debug logs a message to stdout with the DEBUG log level
func Debug(message string) {
	writeLog(ServiceName, message, "DEBUG", debugLevel)
}

// Debugf is the printf flavour of Debug
func Debugf(format string, args ...interface{}) {
	if LogLevel > debugLevel {
		return
	}
	Debug(fmt.Sprintf(format, args...))
}

// Info logs a message to stdout with the INFO log level
func Info(message string) {
	writeLog(ServiceName, message, "INFO", infoLevel)
}

// Warning logs a message to stdout with the WARN log level
func Warning(message string) {
	writeLog(ServiceName, message, "WARN", warningLevel)
}

// Error logs a message to stdout with the ERROR log level
func Error(message string, errs ...error) {
	if len(errs) == 0 {
		writeLog(ServiceName, message, "ERROR", errorLevel)
	} else {
		writeLog(ServiceName, message+" ("+errs[0].Error()+")", "ERROR", errorLevel)
	}
}

func levelValue(level string) int {
	switch level {
	case "TRACE":
		return traceLevel
	case "DEBUG":
		return debugLevel
	case "INFO":
		return infoLevel
	case "WARN":
		return warningLevel
	case "ERROR":
		return errorLevel
	default:
		return infoLevel
	}
}

// Init initializes the logger object
func Init(conf config.Config) {
	LogLevel = levelValue(conf.Logger.Level)
	ArtifactID = conf.Logger.ArtifactID
	ServiceName = conf.Logger.ServiceName
}

// SetOutput redirects the log lines, mostly useful for tests. A nil writer restores stdout
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// TimeFormated Formats the provided time according to 'yyyy-MM-dd'T'HH:mm:ssZ'
func TimeFormated(time *time.Time) string {
	return time.Format("2006-01-02T15:04:05.999-0700")
}

// GinFormatter is used to adapt Gin's logging to the logstash format
func GinFormatter(param gin.LogFormatterParams) string {
	lValue := traceLevel
	lLevel := "TRACE"

	if param.StatusCode >= 500 && param.StatusCode <= 599 {
		lValue = warningLevel
		lLevel = "WARN"
	}

	if LogLevel > lValue {
		return ""
	}

	entry := newEvent(
		TimeFormated(&param.TimeStamp),
		"gin",
		fmt.Sprintf("[%s] %s %s %s - %d (in %s) %s",
			param.ClientIP,
			param.Request.Proto,
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ErrorMessage,
		),
		lLevel,
		lValue,
	)

	b, _ := json.Marshal(entry)

	return string(b) + "\n"
}
