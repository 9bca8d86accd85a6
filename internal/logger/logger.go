package logger

import (
	"github.com/sirupsen/logrus"
)

var Log = logrus.StandardLogger()

// Init инициализирует структурированный логгер.
// В development используется текстовый формат, иначе JSON.
func Init(level, env string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if env == "development" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Op возвращает запись лога с полем операции.
func Op(op string) *logrus.Entry {
	return Log.WithField("op", op)
}
