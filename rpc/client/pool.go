package client

import (
	"context"
	"fmt"

	pool "github.com/jolestar/go-commons-pool/v2"

	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/serializer"
)

// connectionFactory creates the pooled clients, each with its own transport
type connectionFactory struct {
	config     common.ClientConfig
	serializer serializer.IValueSerializer
}

func (f *connectionFactory) MakeObject(ctx context.Context) (*pool.PooledObject, error) {
	t, err := NewTransport(f.config.Transport)
	if err != nil {
		return nil, err
	}
	c, err := NewClient(f.config, t, f.serializer)
	if err != nil {
		return nil, err
	}
	return pool.NewPooledObject(c), nil
}

func (f *connectionFactory) DestroyObject(ctx context.Context, object *pool.PooledObject) error {
	c, ok := object.Object.(*Client)
	if !ok {
		return fmt.Errorf("unexpected pooled object %T", object.Object)
	}
	return c.Close()
}

func (f *connectionFactory) ValidateObject(ctx context.Context, object *pool.PooledObject) bool {
	c, ok := object.Object.(*Client)
	return ok && c.Ping() == nil
}

func (f *connectionFactory) ActivateObject(ctx context.Context, object *pool.PooledObject) error {
	return nil
}

func (f *connectionFactory) PassivateObject(ctx context.Context, object *pool.PooledObject) error {
	return nil
}

// Pool holds up to config.PoolSize connected clients. Borrowed clients keep
// their selected group, so callers that switch groups should select the
// group they need on every borrow.
type Pool struct {
	objects *pool.ObjectPool
}

// NewPool creates a pool. Clients are connected lazily on the first borrow.
func NewPool(ctx context.Context, config common.ClientConfig, serializer serializer.IValueSerializer) *Pool {
	size := max(1, config.PoolSize)

	cfg := pool.NewDefaultPoolConfig()
	cfg.MaxTotal = size
	cfg.MaxIdle = size

	factory := &connectionFactory{config: config, serializer: serializer}
	return &Pool{objects: pool.NewObjectPool(ctx, factory, cfg)}
}

// Borrow returns an idle client or connects a new one, blocking while all
// clients are in use
func (p *Pool) Borrow(ctx context.Context) (*Client, error) {
	obj, err := p.objects.BorrowObject(ctx)
	if err != nil {
		return nil, err
	}
	return obj.(*Client), nil
}

// Return hands a client back to the pool
func (p *Pool) Return(ctx context.Context, c *Client) error {
	return p.objects.ReturnObject(ctx, c)
}

// Invalidate closes a broken client and removes it from the pool
func (p *Pool) Invalidate(ctx context.Context, c *Client) error {
	return p.objects.InvalidateObject(ctx, c)
}

// Do runs fn with a borrowed client. The client is dropped from the pool
// when fn fails with an error other than a server reply.
func (p *Pool) Do(ctx context.Context, fn func(c *Client) error) error {
	c, err := p.Borrow(ctx)
	if err != nil {
		return err
	}

	err = fn(c)
	if err != nil {
		if _, isReply := err.(*ResponseError); !isReply {
			if ierr := p.Invalidate(ctx, c); ierr != nil {
				Logger.Warningf("failed to invalidate client: %v", ierr)
			}
			return err
		}
	}

	if rerr := p.Return(ctx, c); rerr != nil {
		Logger.Warningf("failed to return client: %v", rerr)
	}
	return err
}

// Active returns the number of borrowed clients
func (p *Pool) Active() int {
	return p.objects.GetNumActive()
}

// Close closes all idle clients
func (p *Pool) Close(ctx context.Context) {
	p.objects.Close(ctx)
}
