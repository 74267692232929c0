package retail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/eshaffer321/retail-go/internal/transport"
)

// maxPages bounds ListAll against a server that never stops paging
const maxPages = 1000

// resourceService implements ResourceService over a paginated REST collection
type resourceService[T any] struct {
	client *Client
	name   string
	path   string
}

func newResourceService[T any](client *Client, name string) *resourceService[T] {
	return &resourceService[T]{
		client: client,
		name:   name,
		path:   "/" + name + "/",
	}
}

func (s *resourceService[T]) itemPath(id int64) string {
	return s.path + strconv.FormatInt(id, 10) + "/"
}

// List retrieves one page
func (s *resourceService[T]) List(ctx context.Context, opts *ListOptions) (*Page[T], error) {
	req := &transport.Request{
		Method: http.MethodGet,
		Path:   s.path,
		Query:  opts.values(),
	}

	var page Page[T]
	if err := s.client.execute(ctx, req, &page); err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", s.name)
	}
	return &page, nil
}

// ListAll retrieves every page
func (s *resourceService[T]) ListAll(ctx context.Context, opts *ListOptions) ([]*T, error) {
	next := ListOptions{}
	if opts != nil {
		next = *opts
	}
	if next.Page < 1 {
		next.Page = 1
	}

	var all []*T
	for i := 0; i < maxPages; i++ {
		page, err := s.List(ctx, &next)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if !page.HasNext() {
			return all, nil
		}
		next.Page++
	}
	return nil, fmt.Errorf("%s: more than %d pages", s.name, maxPages)
}

// Get retrieves a single item by ID
func (s *resourceService[T]) Get(ctx context.Context, id int64) (*T, error) {
	var item T
	req := &transport.Request{Method: http.MethodGet, Path: s.itemPath(id)}
	if err := s.client.execute(ctx, req, &item); err != nil {
		return nil, errors.Wrapf(err, "failed to get %s %d", s.name, id)
	}
	return &item, nil
}

// Create creates a new item
func (s *resourceService[T]) Create(ctx context.Context, item *T) (*T, error) {
	var created T
	req := &transport.Request{Method: http.MethodPost, Path: s.path, Body: item}
	if err := s.client.execute(ctx, req, &created); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", s.name)
	}
	return &created, nil
}

// Update replaces an existing item
func (s *resourceService[T]) Update(ctx context.Context, id int64, item *T) (*T, error) {
	var updated T
	req := &transport.Request{Method: http.MethodPut, Path: s.itemPath(id), Body: item}
	if err := s.client.execute(ctx, req, &updated); err != nil {
		return nil, errors.Wrapf(err, "failed to update %s %d", s.name, id)
	}
	return &updated, nil
}

// Patch updates only the given fields
func (s *resourceService[T]) Patch(ctx context.Context, id int64, fields map[string]interface{}) (*T, error) {
	var updated T
	req := &transport.Request{Method: http.MethodPatch, Path: s.itemPath(id), Body: fields}
	if err := s.client.execute(ctx, req, &updated); err != nil {
		return nil, errors.Wrapf(err, "failed to patch %s %d", s.name, id)
	}
	return &updated, nil
}

// Delete deletes an item
func (s *resourceService[T]) Delete(ctx context.Context, id int64) error {
	req := &transport.Request{Method: http.MethodDelete, Path: s.itemPath(id)}
	if err := s.client.execute(ctx, req, nil); err != nil {
		return errors.Wrapf(err, "failed to delete %s %d", s.name, id)
	}
	return nil
}

func (o *ListOptions) values() url.Values {
	if o == nil {
		return nil
	}

	q := url.Values{}
	for k, v := range o.Filters {
		q.Set(k, v)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Ordering != "" {
		q.Set("ordering", o.Ordering)
	}
	return q
}
