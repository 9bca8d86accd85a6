package goroutine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
)

// Group запускает фоновые задачи сервера и ждёт их завершения при остановке.
// panic внутри задачи не роняет процесс, а пишется в лог с именем задачи.
type Group struct {
	wg sync.WaitGroup
}

// Go запускает задачу с контекстом. Ошибка, отличная от context.Canceled, логируется.
func (g *Group) Go(ctx context.Context, name string, fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer recoverPanic(name)

		err := fn(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).WithField("task", name).Error("фоновая задача завершилась с ошибкой")
			return
		}
		logger.Log.WithField("task", name).Debug("фоновая задача остановлена")
	}()
}

// Wait блокирует до завершения всех задач группы.
func (g *Group) Wait() {
	g.wg.Wait()
}

// SafeGo запускает функцию в отдельной горутине с перехватом panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer recoverPanic(name)
		fn()
	}()
}

func recoverPanic(name string) {
	if r := recover(); r != nil {
		logger.Log.WithFields(logrus.Fields{
			"task":  name,
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("panic в горутине")
	}
}
