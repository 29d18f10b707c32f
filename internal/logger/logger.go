package logger

import "go.uber.org/zap"

var log = zap.NewNop().Sugar()

func Init() {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	log = l.Sugar()
}

// InitProduction switches to the JSON encoder used outside of local runs.
func InitProduction() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	log = l.Sugar()
}

func Info(msg string, kv ...interface{}) {
	log.Infow(msg, kv...)
}

func Warn(msg string, kv ...interface{}) {
	log.Warnw(msg, kv...)
}

func Error(msg string, kv ...interface{}) {
	log.Errorw(msg, kv...)
}

func Debug(msg string, kv ...interface{}) {
	log.Debugw(msg, kv...)
}

func Sync() {
	_ = log.Sync()
}
