package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) Send(context.Context, Message) error {
	f.calls++
	return f.err
}

type fakeSender struct {
	params *bot.SendMessageParams
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.params = p
	return &models.Message{}, f.err
}

func confirmed() Message {
	return Message{
		Kind:             KindConfirmed,
		RecipientName:    "Asha",
		RecipientEmail:   "asha@example.com",
		BookingID:        "b-1",
		SessionTitle:     "Physics <demo>",
		OrganizationName: "Acme Coaching",
		Date:             "2024-02-01",
		TimeLabel:        "10:00-11:00",
		Mode:             "in_person",
		LocationOrLink:   "12 MG Road",
		Address:          "12 MG Road",
		ContactNumber:    "+91 90000 00000",
	}
}

func Test_Message_Body(t *testing.T) {
	body := confirmed().Body()

	assert.Contains(t, body, "Hi Asha")
	assert.Contains(t, body, "Date: 2024-02-01")
	assert.Contains(t, body, "Where: 12 MG Road")
	assert.Equal(t, 1, strings.Count(body, "12 MG Road"), "address equal to location is printed once")
	assert.NotContains(t, body, "Reason:")

	declined := confirmed()
	declined.Kind = KindDeclined
	declined.Reason = "Batch is full"
	assert.Contains(t, declined.Body(), "Reason: Batch is full")
	assert.NotContains(t, declined.Body(), "Where:")
}

func Test_Multi_SucceedsWhenAnyChannelDelivers(t *testing.T) {
	broken := &fakeNotifier{err: errors.New("smtp down")}
	ok := &fakeNotifier{}

	err := NewMulti().Add("email", broken).Add("log", ok).Send(context.Background(), confirmed())

	require.NoError(t, err)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, ok.calls)
}

func Test_Multi_JoinsErrorsWhenAllFail(t *testing.T) {
	smtpErr := errors.New("smtp down")

	err := NewMulti().
		Add("email", &fakeNotifier{err: smtpErr}).
		Add("telegram", &fakeNotifier{err: ErrNoRecipient}).
		Send(context.Background(), confirmed())

	require.Error(t, err)
	assert.ErrorIs(t, err, smtpErr)
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Contains(t, err.Error(), "email:")
}

func Test_Multi_EmptyIsAnError(t *testing.T) {
	m := NewMulti().Add("nil", nil)

	assert.Equal(t, 0, m.Len())
	assert.Error(t, m.Send(context.Background(), confirmed()))
}

func Test_EmailNotifier_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n := NewEmailNotifier("mailpit", 1025, "")
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, n.Send(context.Background(), confirmed()))

	assert.Equal(t, "mailpit:1025", gotAddr)
	assert.Equal(t, "no-reply@demo-booking.local", gotFrom)
	assert.Equal(t, []string{"asha@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Your demo session \"Physics <demo>\" is confirmed\r\n")
}

func Test_EmailNotifier_NoAddress(t *testing.T) {
	msg := confirmed()
	msg.RecipientEmail = "  "

	err := NewEmailNotifier("localhost", 1025, "x@y").Send(context.Background(), msg)

	assert.ErrorIs(t, err, ErrNoRecipient)
}

func Test_EmailNotifier_HeaderInjection(t *testing.T) {
	var calls int
	var gotMsg []byte
	n := NewEmailNotifier("mailpit", 1025, "")
	n.sendMail = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		calls++
		gotMsg = msg
		return nil
	}

	msg := confirmed()
	msg.RecipientEmail = "asha@example.com\r\nBcc: all@example.com"
	assert.ErrorIs(t, n.Send(context.Background(), msg), ErrUnsafeHeader)
	assert.Zero(t, calls)

	msg = confirmed()
	msg.SessionTitle = "Physics\r\nBcc: all@example.com"
	require.NoError(t, n.Send(context.Background(), msg))
	headers, _, _ := strings.Cut(string(gotMsg), "\r\n\r\n")
	assert.NotContains(t, headers, "\r\nBcc:")
}

func Test_TelegramNotifier_Send(t *testing.T) {
	chatID := int64(42)
	sender := &fakeSender{}
	msg := confirmed()
	msg.RecipientTelegramID = &chatID

	require.NoError(t, NewTelegramNotifier(sender).Send(context.Background(), msg))

	require.NotNil(t, sender.params)
	assert.Equal(t, chatID, sender.params.ChatID)
	assert.Equal(t, models.ParseModeHTML, sender.params.ParseMode)
	assert.Contains(t, sender.params.Text, "Physics &lt;demo&gt;")
}

func Test_TelegramNotifier_Errors(t *testing.T) {
	assert.ErrorIs(t, NewTelegramNotifier(&fakeSender{}).Send(context.Background(), confirmed()), ErrNoRecipient)

	chatID := int64(7)
	msg := confirmed()
	msg.RecipientTelegramID = &chatID
	boom := errors.New("blocked by user")
	assert.ErrorIs(t, NewTelegramNotifier(&fakeSender{err: boom}).Send(context.Background(), msg), boom)
}

func Test_LogNotifier_NeverFails(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zap.NewNop()).Send(context.Background(), confirmed()))
}
