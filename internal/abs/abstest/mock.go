// Package abstest provides a testify mock of abs.Client.
package abstest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/maauso/audiobook-skill/internal/abs"
)

// Compile-time check that Client implements abs.Client.
var _ abs.Client = (*Client)(nil)

// Client is a mock abs.Client.
type Client struct {
	mock.Mock
}

func (m *Client) LastInProgressItem(ctx context.Context) (*abs.LibraryItem, error) {
	args := m.Called(ctx)
	item, _ := args.Get(0).(*abs.LibraryItem)
	return item, args.Error(1)
}

func (m *Client) Item(ctx context.Context, id string, opts abs.ItemOptions) (*abs.LibraryItem, error) {
	args := m.Called(ctx, id, opts)
	item, _ := args.Get(0).(*abs.LibraryItem)
	return item, args.Error(1)
}

func (m *Client) StartSession(ctx context.Context, itemID, deviceID string) (*abs.PlaybackSession, error) {
	args := m.Called(ctx, itemID, deviceID)
	ps, _ := args.Get(0).(*abs.PlaybackSession)
	return ps, args.Error(1)
}

func (m *Client) SyncSession(ctx context.Context, sessionID string, p abs.Progress) error {
	args := m.Called(ctx, sessionID, p)
	return args.Error(0)
}

func (m *Client) CloseSession(ctx context.Context, sessionID string, p abs.Progress) bool {
	args := m.Called(ctx, sessionID, p)
	return args.Bool(0)
}

func (m *Client) Libraries(ctx context.Context) ([]abs.Library, error) {
	args := m.Called(ctx)
	libs, _ := args.Get(0).([]abs.Library)
	return libs, args.Error(1)
}

func (m *Client) LibraryFilterData(ctx context.Context, libraryID string) (*abs.FilterData, error) {
	args := m.Called(ctx, libraryID)
	fd, _ := args.Get(0).(*abs.FilterData)
	return fd, args.Error(1)
}

func (m *Client) Author(ctx context.Context, authorID string) (*abs.AuthorWithItems, error) {
	args := m.Called(ctx, authorID)
	a, _ := args.Get(0).(*abs.AuthorWithItems)
	return a, args.Error(1)
}

func (m *Client) Search(ctx context.Context, libraryID, query string) (*abs.SearchResults, error) {
	args := m.Called(ctx, libraryID, query)
	r, _ := args.Get(0).(*abs.SearchResults)
	return r, args.Error(1)
}
