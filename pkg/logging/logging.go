package logging

import (
	"bytes"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatActions = "actions"
)

// ActionsFormatter prints errors and warnings as GitHub Actions workflow commands,
// so that they are highlighted in the job log and the run summary.
type ActionsFormatter struct{}

func textFormatter() log.Formatter {
	return &log.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        time.RFC3339Nano,
		DisableLevelTruncation: true,
	}
}

func jsonFormatter() log.Formatter {
	return &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
}

func Formatter(format string) (log.Formatter, error) {
	switch format {
	case FormatJSON:
		return jsonFormatter(), nil
	case FormatText:
		return textFormatter(), nil
	case FormatActions:
		return &ActionsFormatter{}, nil
	default:
		return nil, fmt.Errorf("log format '%s' is not recognized", format)
	}
}

func Setup(level, format string, output io.Writer) error {
	formatter, err := Formatter(format)
	if err != nil {
		return err
	}
	log.SetFormatter(formatter)
	log.SetOutput(output)

	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("while setting log level: %s", err)
	}
	log.SetLevel(logLevel)

	return nil
}

func (a *ActionsFormatter) Format(e *log.Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	switch e.Level {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		buf.WriteString("::error::")
	case log.WarnLevel:
		buf.WriteString("::warning::")
	default:
		buf.WriteString("[")
		buf.WriteString(e.Time.Format(time.RFC3339Nano))
		buf.WriteString("] ")
	}
	buf.WriteString(e.Message)
	if app, ok := e.Data["app"]; ok {
		fmt.Fprintf(buf, " (app=%v)", app)
	}
	buf.WriteRune('\n')
	return buf.Bytes(), nil
}
