package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mentiongraph/internal/model"
)

// ReadJSONL decodes one message per line. Blank lines are skipped. Every
// message needs a positive id and an author.
func ReadJSONL(r io.Reader) ([]model.Message, error) {
	out := []model.Message{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var m model.Message
		if err := json.Unmarshal([]byte(text), &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if m.ID <= 0 {
			return nil, fmt.Errorf("line %d: missing or non-positive id", line)
		}
		if m.Author == "" {
			return nil, fmt.Errorf("line %d: missing author", line)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
