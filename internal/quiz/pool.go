package quiz

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/model"
)

// LoadPool reads the static question pool from a JSON file. An empty path
// falls back to the built-in pool so the gateway runs without a fixture.
func LoadPool(path string) ([]model.Question, error) {
	if path == "" {
		return DefaultPool(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question pool: %w", err)
	}

	var pool []model.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, fmt.Errorf("parse question pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("question pool %s has no questions", path)
	}

	for i, q := range pool {
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("question %d: expected 4 options, got %d", i, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("question %d: correct answer index %d out of range", i, q.CorrectAnswer)
		}
	}
	return pool, nil
}

// DefaultPool is a small built-in question set for development and tests.
func DefaultPool() []model.Question {
	prompts := []struct {
		prompt  string
		options [4]string
		correct int
	}{
		{"Which HTTP method is idempotent by definition?", [4]string{"POST", "PUT", "PATCH", "CONNECT"}, 1},
		{"Which SQL clause filters grouped rows?", [4]string{"WHERE", "ORDER BY", "HAVING", "LIMIT"}, 2},
		{"What does TLS primarily provide?", [4]string{"Compression", "Encryption in transit", "Load balancing", "Caching"}, 1},
		{"Which data structure gives O(1) average lookup?", [4]string{"Linked list", "Hash table", "Binary tree", "Array scan"}, 1},
		{"Which index type suits prefix searches?", [4]string{"Hash", "B-tree", "Bitmap", "GIN"}, 1},
		{"What does CI stand for in CI/CD?", [4]string{"Code inspection", "Continuous integration", "Container image", "Change isolation"}, 1},
		{"Which status code means 'created'?", [4]string{"200", "201", "204", "301"}, 1},
		{"Which attack does parameterized SQL prevent?", [4]string{"XSS", "CSRF", "SQL injection", "Clickjacking"}, 2},
		{"What is the default port of HTTPS?", [4]string{"80", "8080", "443", "22"}, 2},
		{"Which consistency model do most SQL databases default to?", [4]string{"Eventual", "Strong", "Causal", "Monotonic reads"}, 1},
		{"Which tool builds container images from a declarative file?", [4]string{"kubectl", "Docker", "Terraform", "Ansible"}, 1},
		{"What does a mobile app bundle identifier uniquely name?", [4]string{"A device", "An application", "A user", "A screen"}, 1},
	}

	pool := make([]model.Question, len(prompts))
	for i, p := range prompts {
		pool[i] = model.Question{
			ID:            uuid.New(),
			Prompt:        p.prompt,
			Options:       p.options[:],
			CorrectAnswer: p.correct,
		}
	}
	return pool
}
