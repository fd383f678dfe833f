// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"sync"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/quiver-ui/quiver/internal/domain"
)

var ErrInstanceNotFound = errors.New("instance not found")

const connectTimeout = 60 * time.Second

// Client wraps the qBittorrent API client for one configured instance.
type Client struct {
	*qbt.Client
	instanceID int
}

func NewClient(ctx context.Context, instance domain.InstanceConfig) (*Client, error) {
	cfg := qbt.Config{
		Host:          instance.Host,
		Username:      instance.Username,
		Password:      instance.Password,
		Timeout:       int(connectTimeout.Seconds()),
		TLSSkipVerify: instance.TLSSkipVerify,
	}

	qbtClient := qbt.NewClient(cfg)

	loginCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := qbtClient.LoginCtx(loginCtx); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to qBittorrent instance %q", instance.Name)
	}

	log.Debug().
		Int("instanceID", instance.ID).
		Str("host", instance.Host).
		Msg("Connected to qBittorrent instance")

	return &Client{
		Client:     qbtClient,
		instanceID: instance.ID,
	}, nil
}

// ClientPool lazily dials configured instances and reuses healthy clients.
type ClientPool struct {
	instances map[int]domain.InstanceConfig

	mu      sync.Mutex
	clients map[int]*Client
}

func NewClientPool(instances []domain.InstanceConfig) *ClientPool {
	byID := make(map[int]domain.InstanceConfig, len(instances))
	for _, instance := range instances {
		byID[instance.ID] = instance
	}
	return &ClientPool{
		instances: byID,
		clients:   make(map[int]*Client),
	}
}

// GetClient returns a connected client for the instance, dialing on first
// use. A failed login is not cached; the next call retries.
func (p *ClientPool) GetClient(ctx context.Context, instanceID int) (*Client, error) {
	instance, ok := p.instances[instanceID]
	if !ok {
		return nil, ErrInstanceNotFound
	}

	p.mu.Lock()
	if client, ok := p.clients[instanceID]; ok {
		p.mu.Unlock()
		return client, nil
	}
	p.mu.Unlock()

	// Dial outside the lock so one slow instance cannot stall the others.
	client, err := NewClient(ctx, instance)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.clients[instanceID]; ok {
		return existing, nil
	}
	p.clients[instanceID] = client
	return client, nil
}

// Drop evicts a client so the next GetClient re-dials, used after repeated
// request failures.
func (p *ClientPool) Drop(instanceID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, instanceID)
}

func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[int]*Client)
}
