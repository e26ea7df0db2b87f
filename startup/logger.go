package startup

import (
	"fmt"
	"os"
	"sort"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	msg := fmt.Sprintf("[%s] [%s] [%s] %s",
		entry.Time.Format("2006-01-02T15:04:05Z07:00"),
		entry.Level,
		generateUniqueID(entry.Time),
		entry.Message,
	)
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		msg += fmt.Sprintf(" %s=%v", key, entry.Data[key])
	}

	return []byte(msg + "\n"), nil
}

func generateUniqueID(t time.Time) string {
	return fmt.Sprintf("ID-%d", t.UnixNano())
}

// NewLogger writes to rotated files under path, or to stdout when path is empty.
func NewLogger(path string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&CustomFormatter{})

	if path == "" {
		logger.SetOutput(os.Stdout)
		return logger, nil
	}

	writer, err := rotatelogs.New(
		path+"_%Y%m%d%H%M",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("create rotating log writer: %w", err)
	}
	logger.SetOutput(writer)
	return logger, nil
}
