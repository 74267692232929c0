package devserver

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type collection struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]map[string]interface{}
}

func newCollection() *collection {
	return &collection{items: make(map[int64]map[string]interface{})}
}

func (c *collection) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *collection) list() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id])
	}
	return out
}

func (c *collection) get(id int64) (map[string]interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

func (c *collection) create(fields map[string]interface{}, now time.Time) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	item := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		item[k] = v
	}
	item["id"] = c.nextID
	item["created_at"] = now.UTC().Format(time.RFC3339)
	item["updated_at"] = item["created_at"]
	c.items[c.nextID] = item
	return item
}

// update merges fields into an item. With replace set, fields missing from
// the body are dropped.
func (c *collection) update(id int64, fields map[string]interface{}, replace bool, now time.Time) (map[string]interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.items[id]
	if !ok {
		return nil, false
	}

	item := make(map[string]interface{}, len(old)+len(fields))
	if !replace {
		for k, v := range old {
			item[k] = v
		}
	}
	for k, v := range fields {
		item[k] = v
	}
	item["id"] = id
	item["created_at"] = old["created_at"]
	item["updated_at"] = now.UTC().Format(time.RFC3339)
	c.items[id] = item
	return item, true
}

func (c *collection) delete(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	return true
}

func (s *Server) mountCollection(g *gin.RouterGroup, name string) {
	col := s.collections[name]
	base := "/" + name + "/"

	g.GET(base, func(c *gin.Context) {
		page, size, ok := pagination(c)
		if !ok {
			return
		}

		all := col.list()
		start := (page - 1) * size
		if start > len(all) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
			return
		}
		end := start + size
		if end > len(all) {
			end = len(all)
		}

		c.JSON(http.StatusOK, gin.H{
			"count":    len(all),
			"next":     pageLink(c, page+1, size, end < len(all)),
			"previous": pageLink(c, page-1, size, page > 1),
			"results":  all[start:end],
		})
	})

	g.POST(base, func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Invalid JSON body."}})
			return
		}
		item := col.create(body, s.now())
		s.announce(name, item)
		c.JSON(http.StatusCreated, item)
	})

	g.GET(base+":id/", func(c *gin.Context) {
		id, ok := itemID(c)
		if !ok {
			return
		}
		item, found := col.get(id)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.JSON(http.StatusOK, item)
	})

	write := func(replace bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			id, ok := itemID(c)
			if !ok {
				return
			}
			var body map[string]interface{}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Invalid JSON body."}})
				return
			}
			item, found := col.update(id, body, replace, s.now())
			if !found {
				c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
				return
			}
			c.JSON(http.StatusOK, item)
		}
	}
	g.PUT(base+":id/", write(true))
	g.PATCH(base+":id/", write(false))

	g.DELETE(base+":id/", func(c *gin.Context) {
		id, ok := itemID(c)
		if !ok {
			return
		}
		if !col.delete(id) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func pagination(c *gin.Context) (page, size int, ok bool) {
	page, size = 1, DefaultPageSize
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
			return 0, 0, false
		}
		page = n
	}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"page_size": []string{"A valid integer is required."}})
			return 0, 0, false
		}
		size = n
	}
	return page, size, true
}

func pageLink(c *gin.Context, page, size int, exists bool) interface{} {
	if !exists {
		return nil
	}
	u := url.URL{Scheme: "http", Host: c.Request.Host, Path: c.Request.URL.Path}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))
	u.RawQuery = q.Encode()
	return u.String()
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

func (s *Server) announce(resource string, item map[string]interface{}) {
	if !s.notifyOnCreate {
		return
	}

	s.mu.Lock()
	s.notificationID++
	s.unread++
	id, unread := s.notificationID, s.unread
	s.mu.Unlock()

	s.Push(map[string]interface{}{
		"type": "new_notification",
		"notification": map[string]interface{}{
			"id":         id,
			"title":      fmt.Sprintf("New %s", singular(resource)),
			"message":    fmt.Sprintf("%s #%v was created", singular(resource), item["id"]),
			"level":      "info",
			"is_read":    false,
			"created_at": s.now().UTC().Format(time.RFC3339),
		},
	})
	s.Push(map[string]interface{}{"type": "unread_count", "count": unread})
}

func singular(resource string) string {
	switch resource {
	case "sales":
		return "sale"
	case "customers", "products", "suppliers", "expenses":
		return resource[:len(resource)-1]
	default:
		return resource
	}
}
