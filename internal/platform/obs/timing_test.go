package obs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeLogsRequestIDAndError(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	ctx := WithRequestID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", RequestID(ctx))

	err := errors.New("boom")
	Time(ctx, "shifts.Start")(&err)

	line := buf.String()
	assert.True(t, strings.Contains(line, "req_id=abc-123"))
	assert.True(t, strings.Contains(line, "op=shifts.Start"))
	assert.True(t, strings.Contains(line, "err=boom"))
}
