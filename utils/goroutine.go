package utils

import (
	"fmt"

	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
)

// SafeGo 拦截 panic 的 goroutine
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[SafeGo] panic recovered", zap.String("panic", fmt.Sprint(err)))
			}
		}()
		fn()
	}()
}
