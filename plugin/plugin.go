// Package plugin invokes external annotation services for each ingested
// record.  Annotators are advisory: a slow or broken endpoint contributes
// nothing and never fails the ingestion of the record it was asked about.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"terraform-logviewer-go/utils"
)

const defaultDeadline = time.Second

// Event is what each annotator is shown about a record.
type Event struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Level     string            `json:"level"`
	Section   string            `json:"section"`
	Message   string            `json:"message"`
	Attrs     map[string]string `json:"attrs"`
}

// Endpoints returns the configured annotator URLs.  Unset means disabled.
func Endpoints() []string {
	raw := os.Getenv("PLUGIN_ENDPOINTS")
	if !utils.HasText(raw) {
		return nil
	}
	var endpoints []string
	for _, endpoint := range strings.Split(raw, ",") {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}
	return endpoints
}

func Deadline() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("PLUGIN_DEADLINE"))
	if err != nil || ms <= 0 {
		return defaultDeadline
	}
	return time.Duration(ms) * time.Millisecond
}

// Annotate fans the event out to every configured annotator and merges the
// results, last writer wins.  Failures and timeouts are logged and treated
// as an empty contribution; one broken annotator does not block the others.
func Annotate(event Event) map[string]string {
	endpoints := Endpoints()
	if len(endpoints) == 0 {
		return map[string]string{}
	}

	deadline := Deadline()
	merged := map[string]string{}

	for _, endpoint := range endpoints {
		annotations, err := invoke(endpoint, event, deadline)
		if err != nil {
			log.Printf("Plugin %s failed: %v", endpoint, err)
			continue
		}
		for key, value := range annotations {
			merged[key] = value
		}
	}

	return merged
}

func invoke(endpoint string, event Event, deadline time.Duration) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	annotations := map[string]string{}
	if err := json.NewDecoder(resp.Body).Decode(&annotations); err != nil {
		return nil, err
	}
	return annotations, nil
}

// Demo handles POST /plugin/demo: the built-in annotator used for local
// setups, flagging warning/error severity and echoing the status code.
func Demo(event Event) map[string]string {
	annotations := map[string]string{}

	level := strings.ToUpper(event.Level)
	if level == "ERROR" || level == "WARN" {
		annotations["severity"] = level
	}
	if status, ok := event.Attrs["status_code"]; ok {
		annotations["status"] = status
	}

	return annotations
}
