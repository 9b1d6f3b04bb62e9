package entries

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carlo/audit-trail/cmd/cli/config"
	"github.com/carlo/audit-trail/cmd/cli/output"
)

// absentMarker is shown for a field with no value on one side of a change.
const absentMarker = "(absent)"

type entry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	ActorLabel string    `json:"actor_label"`
	TraceID    string    `json:"trace_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type fieldChange struct {
	Field    string  `json:"field"`
	Previous *string `json:"previous"`
	Current  *string `json:"current"`
}

type historyRow struct {
	Entry   entry         `json:"entry"`
	Changes []fieldChange `json:"changes"`
}

// InitEntries registers the entries command group on the root command.
func InitEntries(rootCmd *cobra.Command) {
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Record and inspect audit entries",
	}

	entriesCmd.AddCommand(
		recordCmd(),
		listCmd(),
		historyCmd(),
	)

	rootCmd.AddCommand(entriesCmd)
}

func recordCmd() *cobra.Command {
	var subjectType, subjectID, action string
	var fields []string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one audit entry for a subject",
		Long: `Record a snapshot for a subject lifecycle event. Fields are given as
repeated --field name=value flags; the server suppresses snapshots whose every
value is blank.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := buildPayload(fields)
			if err != nil {
				return err
			}

			body := map[string]json.RawMessage{}
			body["subject_type"], _ = json.Marshal(subjectType)
			body["subject_id"], _ = json.Marshal(subjectID)
			body["action"], _ = json.Marshal(action)
			body["payload"] = payload

			status, respBody, err := doRequest("POST", "/entries", body)
			if err != nil {
				return err
			}
			switch status {
			case http.StatusCreated:
				var e entry
				if err := json.Unmarshal(respBody, &e); err != nil {
					return err
				}
				fmt.Printf("Recorded entry %d (%s %s/%s)\n", e.ID, e.Action, subjectType, subjectID)
			case http.StatusNoContent:
				fmt.Println("Blank snapshot; nothing recorded.")
			default:
				return fmt.Errorf("status %d: %s", status, string(respBody))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subjectType, "subject-type", "", "Type of the audited record")
	cmd.Flags().StringVar(&subjectID, "subject-id", "", "Identifier of the audited record")
	cmd.Flags().StringVar(&action, "action", "update", "Lifecycle action: create, update, or destroy")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Snapshot field as name=value (repeatable)")
	cmd.MarkFlagRequired("subject-type")
	cmd.MarkFlagRequired("subject-id")

	return cmd
}

// buildPayload turns name=value flags into the JSON object the API expects,
// keeping the flag order.
func buildPayload(fields []string) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, want name=value", f)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(name)
		v, _ := json.Marshal(value)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <subject-type> <subject-id>",
		Short: "List a subject's entries in chronological order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := subjectPath(args[0], args[1], "entries")
			status, body, err := doRequest("GET", path, nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("status %d: %s", status, string(body))
			}

			var list []entry
			if err := json.Unmarshal(body, &list); err != nil {
				return err
			}

			rows := make([][]interface{}, 0, len(list))
			for _, e := range list {
				rows = append(rows, []interface{}{e.ID, e.Action, e.ActorLabel, e.TraceID, e.CreatedAt.Format(time.RFC3339)})
			}
			output.RenderTable([]string{"ID", "ACTION", "ACTOR", "TRACE", "CREATED"}, rows)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <subject-type> <subject-id>",
		Short: "Show a subject's entries with field-level changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := subjectPath(args[0], args[1], "history")
			status, body, err := doRequest("GET", path, nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("status %d: %s", status, string(body))
			}

			var rows []historyRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return err
			}

			for _, row := range rows {
				actor := row.Entry.ActorLabel
				if actor == "" {
					actor = "(unknown)"
				}
				fmt.Printf("\n#%d %s by %s at %s\n", row.Entry.ID, row.Entry.Action, actor, row.Entry.CreatedAt.Format(time.RFC3339))
				if len(row.Changes) == 0 {
					fmt.Println("  no field changes")
					continue
				}
				tableRows := make([][]interface{}, 0, len(row.Changes))
				for _, c := range row.Changes {
					tableRows = append(tableRows, []interface{}{c.Field, valueOrAbsent(c.Previous), valueOrAbsent(c.Current)})
				}
				output.RenderTable([]string{"FIELD", "PREVIOUS", "CURRENT"}, tableRows)
			}
			return nil
		},
	}
}

func valueOrAbsent(v *string) string {
	if v == nil {
		return absentMarker
	}
	return *v
}

func subjectPath(subjectType, subjectID, leaf string) string {
	return fmt.Sprintf("/subjects/%s/%s/%s",
		url.PathEscape(subjectType), url.PathEscape(subjectID), leaf)
}

// doRequest sends an authenticated request and returns status and body.
func doRequest(method, path string, payload interface{}) (int, []byte, error) {
	token, err := config.ReadToken()
	if err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.APIURL()+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
