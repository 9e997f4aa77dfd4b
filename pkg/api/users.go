package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kubdash/kubdash/pkg/cache"
	"github.com/kubdash/kubdash/pkg/models"
)

// Cache keys for user resources.
const usersAllKey = "users:all"

// maxDetailFetches bounds concurrent per-user fetches in ListUsers.
const maxDetailFetches = 8

// flightTimeout bounds a shared user fetch once it no longer follows the
// first caller's cancellation.
const flightTimeout = 30 * time.Second

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

// Login authenticates against the backend. The request is never served from
// cache; the returned user is cached afterwards.
func (c *Client) Login(ctx context.Context, email, password string) (*models.UserWithDetails, error) {
	var u models.UserWithDetails
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/login/",
		body:   models.Credentials{Email: email, Password: password},
	}, &u)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	c.cache.Set(userKey(u.ID), u, c.ttl.Medium)
	c.log.WithField("user_id", u.ID).Info("logged in")
	return &u, nil
}

// Register creates an account and its profile, then returns the complete
// user.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.UserWithDetails, error) {
	var created models.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/users/",
		body:   models.Credentials{Email: reg.Email, Password: reg.Password},
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/users/%d/details/", created.ID),
		body:   models.UserDetails{Name: reg.Name, Email: reg.Email, Phone: reg.Phone},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("add user details: %w", err)
	}

	// The aggregate list no longer reflects the backend.
	c.cache.Remove(usersAllKey)

	return c.GetUser(ctx, created.ID)
}

// GetUser returns a user with details, from cache when possible. Concurrent
// misses for the same user share one request, which outlives any single
// caller's cancellation; each caller stops waiting when its own ctx is done.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.UserWithDetails, error) {
	key := userKey(id)
	if u, ok := cache.GetAs[models.UserWithDetails](c.cache, key); ok {
		return &u, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(flightCtx, flightTimeout)
		defer cancel()

		var u models.UserWithDetails
		if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/users/%d", id)}, &u); err != nil {
			return nil, err
		}
		c.cache.Set(key, u, c.ttl.Medium)
		return u, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get user %d: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("get user %d: %w", id, res.Err)
		}
		u := res.Val.(models.UserWithDetails)
		return &u, nil
	}
}

// ListUsers returns every user with details. Users whose details cannot be
// fetched are returned bare.
func (c *Client) ListUsers(ctx context.Context) ([]models.UserWithDetails, error) {
	if users, ok := cache.GetAs[[]models.UserWithDetails](c.cache, usersAllKey); ok {
		return users, nil
	}

	var users []models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/"}, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]models.UserWithDetails, len(users))
	var g errgroup.Group
	g.SetLimit(maxDetailFetches)
	for i, u := range users {
		g.Go(func() error {
			full, err := c.GetUser(ctx, u.ID)
			if err != nil {
				c.log.WithError(err).WithField("user_id", u.ID).Warn("user details unavailable")
				out[i] = models.UserWithDetails{ID: u.ID, Email: u.Email}
				return nil
			}
			out[i] = *full
			return nil
		})
	}
	_ = g.Wait()

	// Fallbacks caused by cancellation are not a real view of the backend.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	c.cache.Set(usersAllKey, out, c.ttl.Short)
	return out, nil
}

// Logout drops the aggregate user list and prunes expired entries. Live
// per-user entries are kept.
func (c *Client) Logout() bool {
	c.cache.Remove(usersAllKey)
	c.cache.Prune()
	return true
}
