// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dominohub/dominobus/pkg/config"
)

// redisSetter is the subset of *redis.Client the sink writes through.
type redisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSink mirrors entity states into Redis: the state under
// <prefix><uid>, availability under <prefix><uid>:available and the
// entity description under <prefix><uid>:info.
type RedisSink struct {
	client *redis.Client
	db     redisSetter
	prefix string
}

// NewRedisSink connects lazily to the configured server.
func NewRedisSink(cfg config.RedisConfig) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSink{client: client, db: client, prefix: cfg.KeyPrefix}
}

// Ping checks the connection.
func (r *RedisSink) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *RedisSink) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

type redisInfo struct {
	Name      string `json:"name"`
	Component string `json:"component"`
	Unit      string `json:"unit,omitempty"`
}

func (r *RedisSink) Announce(ctx context.Context, infos []Info) error {
	for _, info := range infos {
		data, err := json.Marshal(redisInfo{Name: info.Name, Component: info.Component, Unit: info.Unit})
		if err != nil {
			return err
		}
		if err := r.set(ctx, info.UniqueID+":info", data); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisSink) PublishState(ctx context.Context, info Info, st State) error {
	payload, err := info.Payload(st)
	if err != nil {
		return err
	}
	return r.set(ctx, info.UniqueID, payload)
}

func (r *RedisSink) PublishAvailability(ctx context.Context, info Info, available bool) error {
	payload := PayloadOffline
	if available {
		payload = PayloadOnline
	}
	return r.set(ctx, info.UniqueID+":available", payload)
}

func (r *RedisSink) set(ctx context.Context, key string, value interface{}) error {
	if err := r.db.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.prefix+key, err)
	}
	return nil
}
