package logger_test

import (
	"testing"

	"school-im/pkg/logger"

	"github.com/stretchr/testify/assert"
)

// 包级日志函数在InitLogger之前也必须可用
// 服务层的尽力而为路径（缓存降级等）在单测里直接触发这些调用
func TestLogBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Debug("debug")
		logger.Info("info")
		logger.Warn("warn")
		logger.Error("error")
		logger.Infof("infof %d", 1)
		logger.Warnf("warnf %v", assert.AnError)
		logger.Errorf("errorf %v", assert.AnError)
		logger.WithFields(map[string]interface{}{"user": 1}).Info("with fields")
		_ = logger.Sync()
	})
}
