// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package clog

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// LogProvider RFC5424 log message levels only Critical, Error, Warn and Debug.
type LogProvider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Clog is the internal debugging logger used by the chilid command.
type Clog struct {
	provider LogProvider
	// is log output enabled, 1: enable, 0: disable
	has uint32
}

// NewLogger creates a new Clog backed by a production zap logger tagged
// with component.
func NewLogger(component string) Clog {
	zl, err := zap.NewProduction()
	if err != nil {
		zl = zap.NewNop()
	}
	return Clog{
		provider: defaultLogger{zl.Sugar().Named(component)},
		has:      0,
	}
}

// LogMode enables or disables log output once a provider has been set.
func (sf *Clog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetLogProvider sets the provider.
func (sf *Clog) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical logs a CRITICAL level message.
func (sf Clog) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(format, v...)
	}
}

// Error logs an ERROR level message.
func (sf Clog) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(format, v...)
	}
}

// Warn logs a WARN level message.
func (sf Clog) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(format, v...)
	}
}

// Debug logs a DEBUG level message.
func (sf Clog) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// defaultLogger adapts a *zap.SugaredLogger to LogProvider.
type defaultLogger struct {
	sl *zap.SugaredLogger
}

var _ LogProvider = (*defaultLogger)(nil)

func (sf defaultLogger) Critical(format string, v ...interface{}) {
	sf.sl.Errorf("[C]: "+format, v...)
}

func (sf defaultLogger) Error(format string, v ...interface{}) {
	sf.sl.Errorf("[E]: "+format, v...)
}

func (sf defaultLogger) Warn(format string, v ...interface{}) {
	sf.sl.Warnf("[W]: "+format, v...)
}

func (sf defaultLogger) Debug(format string, v ...interface{}) {
	sf.sl.Debugf("[D]: "+format, v...)
}
