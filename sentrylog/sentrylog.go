package sentrylog

// GORM logger which also captures errors to Sentry.  SQL errors and slow
// queries are the main thing we want to hear about in production; routine
// trace output stays on stdout.

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	logger2 "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// ErrRecordNotFound matches gorm's record not found error.
var ErrRecordNotFound = errors.New("record not found")

type Config struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
	LogLevel                  logger2.LogLevel
}

type sentryLogger struct {
	Config
}

// New initialises Sentry and returns a gorm logger which reports to it.
func New(config Config) logger2.Interface {
	err := sentry.Init(sentry.ClientOptions{
		AttachStacktrace: true,
	})

	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}

	return &sentryLogger{Config: config}
}

func (l *sentryLogger) LogMode(level logger2.LogLevel) logger2.Interface {
	newlogger := *l
	newlogger.LogLevel = level
	return &newlogger
}

func (l *sentryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger2.Info {
		fmt.Printf("%s\n[info] "+msg+"\n", append([]interface{}{utils.FileWithLineNum()}, data...)...)
	}
}

func (l *sentryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger2.Warn {
		fmt.Printf("%s\n[warn] "+msg+"\n", append([]interface{}{utils.FileWithLineNum()}, data...)...)
	}
}

func (l *sentryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger2.Error {
		err := fmt.Errorf(msg, data...)
		fmt.Printf("%s\n[error] %s\n", utils.FileWithLineNum(), err.Error())
		sentry.CaptureMessage(err.Error())
	}
}

func (l *sentryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger2.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && l.LogLevel >= logger2.Error && (!errors.Is(err, ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		sql, rows := fc()
		fmt.Printf("%s %s\n[%.3fms] [rows:%v] %s\n", utils.FileWithLineNum(), err, float64(elapsed.Nanoseconds())/1e6, rows, sql)
		sentry.CaptureMessage(err.Error())
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger2.Warn:
		sql, rows := fc()
		fmt.Printf("%s SLOW SQL >= %v\n[%.3fms] [rows:%v] %s\n", utils.FileWithLineNum(), l.SlowThreshold, float64(elapsed.Nanoseconds())/1e6, rows, sql)
	case l.LogLevel == logger2.Info:
		sql, rows := fc()
		fmt.Printf("%s\n[%.3fms] [rows:%v] %s\n", utils.FileWithLineNum(), float64(elapsed.Nanoseconds())/1e6, rows, sql)
	}
}
