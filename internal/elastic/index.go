package elastic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
)

const IdxStudents = "students_v1"

const studentsMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
	"name":{"type":"text"},"email":{"type":"keyword"},"codeforces_handle":{"type":"keyword"},
	"current_rating":{"type":"integer"},"max_rating":{"type":"integer"},
	"last_synced_at":{"type":"date"},"email_reminders_enabled":{"type":"boolean"},
	"updated_at":{"type":"date"}
}}}`

// EnsureIndexes creates the search indexes that do not exist yet.
func EnsureIndexes(ctx context.Context, c *es.Client) error {
	return ensure(ctx, c, IdxStudents, studentsMapping)
}

func ensure(ctx context.Context, c *es.Client, index, body string) error {
	exists, err := c.Indices.Exists([]string{index}, c.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := c.Indices.Create(index, c.Indices.Create.WithBody(strings.NewReader(body)), c.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.Status())
	}
	return nil
}
