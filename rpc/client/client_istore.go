package client

import (
	"errors"
	"strings"

	"github.com/ValentinKolb/dorea/lib/store"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/serializer"
	"github.com/ValentinKolb/dorea/rpc/transport"
)

type rpcStore struct {
	client *Client
}

// NewRPCStore creates a store.IStore that forwards all operations to a
// remote server. ERR replies are returned as *store.Error.
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IValueSerializer,
) (store.IStore, error) {
	c, err := NewClient(config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcStore{client: c}, nil
}

// StoreOf exposes an existing client as store.IStore
func StoreOf(c *Client) store.IStore {
	return &rpcStore{client: c}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *rpcStore) Select(group string) error {
	return toStoreError(s.client.Select(group), store.RetCGroupNotFound)
}

func (s *rpcStore) Group() string {
	return s.client.Group()
}

func (s *rpcStore) Set(key string, v value.DataValue, ttl uint64) error {
	return toStoreError(s.client.Set(key, v, ttl), store.RetCInvalidOperation)
}

func (s *rpcStore) Delete(key string) error {
	return toStoreError(s.client.Delete(key), store.RetCInvalidOperation)
}

func (s *rpcStore) Get(key string) (value.DataValue, bool, error) {
	v, ok, err := s.client.Get(key)
	return v, ok, toStoreError(err, store.RetCInvalidOperation)
}

func (s *rpcStore) Has(key string) (bool, error) {
	// INFO reads the metadata without promoting the entry
	_, err := s.client.Info("@"+key, "expire")
	if err == nil {
		return true, nil
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) && strings.HasPrefix(respErr.Msg, "Key '") {
		return false, nil
	}
	return false, toStoreError(err, store.RetCInvalidOperation)
}

func (s *rpcStore) Clean() error {
	return toStoreError(s.client.Clean(), store.RetCInvalidOperation)
}

// toStoreError converts ERR replies, transport errors are kept as they are
func toStoreError(err error, code store.RetCode) error {
	var respErr *ResponseError
	if err == nil || !errors.As(err, &respErr) || respErr.State != common.StateErr {
		return err
	}
	return store.NewError(code, respErr.Msg)
}
