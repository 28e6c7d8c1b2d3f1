package emailsvc

import (
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/academia/core"
	appfs "github.com/trezcool/academia/fs"
	logsvc "github.com/trezcool/academia/services/logger"
)

func newTestMock(t *testing.T) *ConsoleServiceMock {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	return NewConsoleServiceMock(conf, logger)
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := newTestMock(t)
	to := []mail.Address{{Name: "Awe", Address: "awe@test.cd"}}

	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "plain", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "hello"},
		&core.EmailMessage{To: to, Subject: "no content"},
		&core.EmailMessage{
			To:           to,
			Subject:      "templated",
			TemplateName: "certificate_issued",
			TemplateData: map[string]interface{}{
				"Name":        "Awe",
				"ProgramName": "Go",
				"IssuedAt":    time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC),
			},
		},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "plain", sent[0].Subject)
	assert.Equal(t, "hello", sent[0].TextContent)

	assert.Equal(t, "templated", sent[1].Subject)
	assert.Contains(t, sent[1].TextContent, "Hello Awe,")
	assert.Contains(t, sent[1].TextContent, "May 17, 2024")
	assert.NotEmpty(t, sent[1].HTMLContent)
}

func TestConsoleService_format(t *testing.T) {
	svc := newTestMock(t)

	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "awe@test.cd"}},
		Subject:     "Your certificate",
		TextContent: "see attached",
	}
	body, err := svc.format(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Academia] Your certificate\r\n")
	assert.Contains(t, body, "To: <awe@test.cd>\r\n")
	assert.Contains(t, body, "Content-Type: multipart/alternative;")
	assert.False(t, strings.Contains(body, "text/html"), "no html part expected")

	msg.Attach([]byte("\x89PNG"), "awe_Go_certificate.png", "image/png")
	body, err = svc.format(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Content-Type: multipart/mixed;")
	assert.Contains(t, body, "attachment; filename=awe_Go_certificate.png")
}
