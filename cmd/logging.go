// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dominohub/dominobus/pkg/config"
)

// newLogger builds the logger every command shares. Logs go to w so they
// never mix with command output on stdout.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	}
	return log, nil
}
