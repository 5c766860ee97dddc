package core

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	for i := logrus.Level(0); i <= 6; i++ {
		entry := newLogger(i, "test")
		assert.Equal(t, i, entry.Logger.GetLevel())
		assert.Equal(t, "test", entry.Data["component"])
	}
}
