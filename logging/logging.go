// Package logging configures logrus for the CLIs and the injected module.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SymbolFormatter prints "[+] message key=value" lines.
type SymbolFormatter struct {
	// Timestamps prefixes each line with the entry time.
	Timestamps bool
}

func symbol(l logrus.Level) string {
	switch l {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "[!]"
	case logrus.WarnLevel:
		return "[~]"
	case logrus.InfoLevel:
		return "[+]"
	default:
		return "[*]"
	}
}

func (f *SymbolFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if f.Timestamps {
		b.WriteString(entry.Time.Format("2006-01-02 15:04:05.000 "))
	}
	b.WriteString(symbol(entry.Level))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := entry.Data[k]
		if u, ok := v.(uintptr); ok {
			fmt.Fprintf(&b, " %s=%#x", k, u)
			continue
		}
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// NewCLI returns the logger used by the command line tools.
func NewCLI(out io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&SymbolFormatter{})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// NewModule returns the logger for code running inside the target. Without a
// file the output is discarded so the host sees nothing. The returned closer
// releases the file.
func NewModule(file, level string) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()
	l.SetFormatter(&SymbolFormatter{Timestamps: true})
	l.SetOutput(io.Discard)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if file == "" {
		return l, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return l, io.NopCloser(nil), errors.Wrap(err, "open module log")
	}
	l.SetOutput(f)
	return l, f, nil
}
