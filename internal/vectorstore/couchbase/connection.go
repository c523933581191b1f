// Package couchbase implements the vector store on Couchbase full text
// search vector indexes.
package couchbase

import (
	"context"
	"time"

	"github.com/couchbase/gocb/v2"
	"go.uber.org/zap"

	"hotelqa/internal/domain"
)

// DefaultConnectTimeout bounds the wait for the cluster to become ready.
const DefaultConnectTimeout = 5 * time.Second

// ConnectConfig holds the cluster address and credentials.
type ConnectConfig struct {
	ConnectionString string
	Username         string
	Password         string
	Timeout          time.Duration
}

// cluster is the part of *gocb.Cluster used here.
type cluster interface {
	WaitUntilReady(timeout time.Duration, opts *gocb.WaitUntilReadyOptions) error
	Bucket(name string) *gocb.Bucket
	Close(opts *gocb.ClusterCloseOptions) error
}

var openCluster = func(connStr string, opts gocb.ClusterOptions) (cluster, error) {
	c, err := gocb.Connect(connStr, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Connection is a live, verified cluster session. It is created once per
// process and handed to NewStorage.
type Connection struct {
	cluster cluster
	logger  *zap.Logger
}

// Connect opens the cluster and waits up to cfg.Timeout for it to be ready.
// Any failure is returned as a connectivity error and is not retried.
func Connect(ctx context.Context, cfg ConnectConfig, logger *zap.Logger) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "couchbase"))
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	c, err := openCluster(cfg.ConnectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		logger.Error("error connecting to couchbase cluster", zap.Error(err))
		return nil, domain.ConnectivityError("connect", err)
	}
	if err := c.WaitUntilReady(timeout, &gocb.WaitUntilReadyOptions{Context: ctx}); err != nil {
		logger.Error("error connecting to couchbase cluster", zap.Error(err), zap.Duration("timeout", timeout))
		_ = c.Close(nil)
		return nil, domain.ConnectivityError("connect", err)
	}
	logger.Info("connected to couchbase cluster")
	return &Connection{cluster: c, logger: logger}, nil
}

// Close ends the cluster session.
func (c *Connection) Close() error {
	return c.cluster.Close(nil)
}
