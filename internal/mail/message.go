// Package mail carries outbound account mail from the API to the mailer
// process over RabbitMQ and delivers it over SMTP or to a log file.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Kind tags what a message is for.
type Kind string

const (
	KindVerification Kind = "verification"
)

// Message is the queued mail payload.
type Message struct {
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sender enqueues a message for delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationMessage builds the email-confirmation mail. The token is
// appended to redirectURL as the "token" query parameter.
func VerificationMessage(to, redirectURL, token string) (Message, error) {
	link, err := url.Parse(redirectURL)
	if err != nil {
		return Message{}, fmt.Errorf("parse redirect url: %w", err)
	}
	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()

	body := fmt.Sprintf("안녕하세요.\n\n아래 링크를 눌러 이메일 인증을 완료해 주세요.\n%s\n\n링크는 24시간 동안 유효합니다.\n본인이 요청하지 않았다면 이 메일을 무시하셔도 됩니다.\n", link.String())
	return Message{
		Kind:      KindVerification,
		To:        to,
		Subject:   "[나눔] 이메일 인증을 완료해 주세요",
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}, nil
}
