package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/cachestorage/internal/expiry"
	"github.com/leonardcser/cachestorage/internal/hook"
	"github.com/leonardcser/cachestorage/internal/storage"
	"github.com/leonardcser/cachestorage/internal/timedstore"
)

type handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Cache serves the cache-* tools. Every tool call is one render of inst, so
// the stores for both namespaces are built on the first call and reused.
type Cache struct {
	inst *hook.Instance
}

func NewCache(inst *hook.Instance) *Cache {
	return &Cache{inst: inst}
}

type rawStore = timedstore.Store[json.RawMessage]

func (c *Cache) withStore(tag string, fn func(*rawStore) error) error {
	ns, err := storage.ParseNamespace(tag)
	if err != nil {
		return err
	}
	return c.inst.Render(func() error {
		local, err := hook.UseCacheStorage[json.RawMessage](c.inst, storage.Local)
		if err != nil {
			return err
		}
		session, err := hook.UseCacheStorage[json.RawMessage](c.inst, storage.Session)
		if err != nil {
			return err
		}
		if ns == storage.Session {
			return fn(session)
		}
		return fn(local)
	})
}

// GetHandler handles "cache-get": the stored JSON value, or a miss notice.
func (c *Cache) GetHandler() handler {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var (
			value json.RawMessage
			found bool
		)
		err = c.withStore(req.GetString("namespace", ""), func(s *rawStore) error {
			value, found, err = s.Get(key)
			return err
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !found {
			return mcp.NewToolResultText(fmt.Sprintf("No value for %q.", key)), nil
		}
		return mcp.NewToolResultText(string(value)), nil
	}
}

// SetHandler handles "cache-set". A value that is not valid JSON is stored as
// a JSON string.
func (c *Cache) SetHandler() handler {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw := json.RawMessage(value)
		if !json.Valid(raw) {
			if raw, err = json.Marshal(value); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		var opts []expiry.Option
		args := req.GetArguments()
		if _, ok := args["interval"]; ok {
			opts = append(opts, expiry.WithInterval(expiry.Interval(req.GetString("interval", ""))))
		}
		if _, ok := args["units"]; ok {
			opts = append(opts, expiry.WithUnits(req.GetInt("units", expiry.DefaultUnits)))
		}

		err = c.withStore(req.GetString("namespace", ""), func(s *rawStore) error {
			return s.Set(key, raw, opts...)
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Stored %q.", key)), nil
	}
}

// DeleteHandler handles "cache-delete".
func (c *Cache) DeleteHandler() handler {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		err = c.withStore(req.GetString("namespace", ""), func(s *rawStore) error {
			return s.Delete(key)
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %q.", key)), nil
	}
}

// ClearExpiredHandler handles "cache-clear-expired".
func (c *Cache) ClearExpiredHandler() handler {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var removed int
		err := c.withStore(req.GetString("namespace", ""), func(s *rawStore) error {
			var err error
			removed, err = s.ClearExpired()
			return err
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Removed %d expired entries.", removed)), nil
	}
}
