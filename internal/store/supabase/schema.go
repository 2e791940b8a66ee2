package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/joeyportfolio/portfolio/db"
	"github.com/joeyportfolio/portfolio/internal/store"
)

// Adds the table to the Realtime publication and reloads the PostgREST
// schema cache so the new table is visible immediately.
const realtimeSQL = `
DO $$
BEGIN
    IF EXISTS (SELECT 1 FROM pg_publication WHERE pubname = 'supabase_realtime')
       AND NOT EXISTS (
           SELECT 1 FROM pg_publication_tables
           WHERE pubname = 'supabase_realtime' AND schemaname = 'public' AND tablename = 'feedback'
       ) THEN
        ALTER PUBLICATION supabase_realtime ADD TABLE public.feedback;
    END IF;
END
$$;

NOTIFY pgrst, 'reload schema';
`

// SchemaSQL is the batch sent to the exec_sql RPC.
func SchemaSQL() string {
	return db.SchemaSQL() + realtimeSQL
}

// CreateSchema calls the project's exec_sql(sql text) function.
func (s *Store) CreateSchema(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"sql": SchemaSQL()})
	if err != nil {
		return store.NewError(store.KindUnknown, "create_schema", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rest/v1/rpc/exec_sql", bytes.NewReader(body))
	if err != nil {
		return store.NewError(store.KindUnknown, "create_schema", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return store.NewError(store.KindNetwork, "create_schema", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return classify("create_schema", decodeAPIError(resp))
	}

	s.log.Infow("Feedback schema ensured through exec_sql")
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &apiError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("Supabase returned status code %d", resp.StatusCode)
	}
	return apiErr
}
