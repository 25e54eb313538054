package notifications

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"comply-scheduler.com/comply-scheduler/internal/constants"
	"comply-scheduler.com/comply-scheduler/internal/logger"
	model "comply-scheduler.com/comply-scheduler/internal/models"
)

// --- fakes ---

type fakeMailer struct {
	mu     sync.Mutex
	sendFn func(Message) error
	sent   []Message
}

func (m *fakeMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.sendFn != nil {
		return m.sendFn(msg)
	}
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []model.NotificationEvent
	err    error
}

func (r *fakeRecorder) Record(ctx context.Context, event *model.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return r.err
}

type fakeSender struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (s *fakeSender) Send(ctx context.Context, task *model.Task, recipient string, kind constants.NotificationKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recipient)
	if s.fail[recipient] {
		return errors.New("mailbox unavailable")
	}
	return nil
}

func sampleTask() *model.Task {
	return &model.Task{
		ID:             "task-1",
		Heading:        "GDPR audit <annual>",
		Description:    "Review processing agreements",
		DueDate:        time.Date(2026, time.May, 4, 17, 0, 0, 0, time.UTC),
		Priority:       constants.PriorityHigh,
		Category:       "Data Protection",
		Notes:          "Focus on consent",
		CreatedBy:      "Owner@Company.com",
		PeopleInvolved: []string{"jane@company.com", " owner@company.com ", "JANE@company.com", "bob@company.com"},
	}
}

// --- tests ---

func TestRender_PerKind(t *testing.T) {
	task := sampleTask()

	cases := []struct {
		kind        constants.NotificationKind
		wantSubject string
		wantUrgent  bool
	}{
		{constants.NotificationCreated, "New Compliance Task: GDPR audit <annual>", false},
		{constants.NotificationReminder, "Reminder: GDPR audit <annual> - Due Soon", false},
		{constants.NotificationOverdue, "OVERDUE: GDPR audit <annual>", true},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			subject, html, err := Render(task, tc.kind, time.UTC)
			if err != nil {
				t.Fatalf("Render() err = %v", err)
			}
			if subject != tc.wantSubject {
				t.Fatalf("subject = %q, want %q", subject, tc.wantSubject)
			}
			for _, want := range []string{"GDPR audit &lt;annual&gt;", "Review processing agreements", "Mon, 04 May 2026", "HIGH"} {
				if !strings.Contains(html, want) {
					t.Fatalf("body missing %q:\n%s", want, html)
				}
			}
			if got := strings.Contains(html, "requires immediate attention"); got != tc.wantUrgent {
				t.Fatalf("urgency marker present = %v, want %v", got, tc.wantUrgent)
			}
		})
	}
}

func TestRender_UnknownKind(t *testing.T) {
	if _, _, err := Render(sampleTask(), constants.NotificationKind("digest"), time.UTC); err == nil {
		t.Fatal("Render() err = nil, want error")
	}
}

func TestRecipients_DedupesCreatorAndAssignees(t *testing.T) {
	got := Recipients(sampleTask())
	want := []string{"owner@company.com", "jane@company.com", "bob@company.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Recipients() = %v, want %v", got, want)
	}
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	mailer := &fakeMailer{sendFn: func(Message) error {
		calls++
		if calls < 3 {
			return errors.New("421 try again later")
		}
		return nil
	}}
	rec := &fakeRecorder{}
	d := NewDispatcher(mailer, rec, Options{MaxAttempts: 3}, logger.Discard())

	if err := d.Send(context.Background(), sampleTask(), "jane@company.com", constants.NotificationReminder); err != nil {
		t.Fatalf("Send() err = %v, want nil", err)
	}
	if len(mailer.sent) != 3 {
		t.Fatalf("mailer called %d times, want 3", len(mailer.sent))
	}
	if len(rec.events) != 3 {
		t.Fatalf("recorded %d events, want one per attempt (3)", len(rec.events))
	}
	if rec.events[0].Success || rec.events[1].Success || !rec.events[2].Success {
		t.Fatalf("unexpected success flags: %+v", rec.events)
	}
	if rec.events[2].Attempt != 3 || rec.events[0].Error == "" {
		t.Fatalf("unexpected audit rows: %+v", rec.events)
	}
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	mailer := &fakeMailer{sendFn: func(Message) error { return errors.New("550 rejected") }}
	rec := &fakeRecorder{}
	d := NewDispatcher(mailer, rec, Options{MaxAttempts: 2}, logger.Discard())

	err := d.Send(context.Background(), sampleTask(), "jane@company.com", constants.NotificationOverdue)
	if err == nil {
		t.Fatal("Send() err = nil, want error")
	}
	if len(mailer.sent) != 2 || len(rec.events) != 2 {
		t.Fatalf("attempts = %d, events = %d, want 2 and 2", len(mailer.sent), len(rec.events))
	}
	if !strings.HasPrefix(mailer.sent[0].Subject, "OVERDUE:") {
		t.Fatalf("subject = %q", mailer.sent[0].Subject)
	}
}

func TestDispatcher_RecorderFailureDoesNotFailSend(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("audit table locked")}
	d := NewDispatcher(&fakeMailer{}, rec, Options{MaxAttempts: 1}, logger.Discard())

	if err := d.Send(context.Background(), sampleTask(), "jane@company.com", constants.NotificationCreated); err != nil {
		t.Fatalf("Send() err = %v, want nil", err)
	}
}

func TestDispatcher_StuckMailerTimesOut(t *testing.T) {
	stuck := mailerFunc(func(ctx context.Context, msg Message) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d := NewDispatcher(stuck, nil, Options{MaxAttempts: 1, Timeout: 20 * time.Millisecond}, logger.Discard())

	start := time.Now()
	err := d.Send(context.Background(), sampleTask(), "jane@company.com", constants.NotificationReminder)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send() err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Send() blocked past its per-attempt timeout")
	}
}

type mailerFunc func(ctx context.Context, msg Message) error

func (f mailerFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

func TestFanOut_FailureDoesNotStopOthers(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"jane@company.com": true}}
	recipients := []string{"owner@company.com", "jane@company.com", "bob@company.com"}

	res := FanOut(context.Background(), sender, sampleTask(), recipients, constants.NotificationReminder, 2)

	if len(sender.calls) != 3 {
		t.Fatalf("sender called %d times, want 3", len(sender.calls))
	}
	if !reflect.DeepEqual(res.Sent, []string{"bob@company.com", "owner@company.com"}) {
		t.Fatalf("Sent = %v", res.Sent)
	}
	if len(res.Failures) != 1 || res.Failures[0].Recipient != "jane@company.com" {
		t.Fatalf("Failures = %+v", res.Failures)
	}
}

type capturedMail struct {
	from string
	to   []string
	body string
	user string
}

type captureSession struct {
	mu  *sync.Mutex
	box *[]capturedMail
	cur capturedMail
}

func (s *captureSession) AuthMechanisms() []string { return []string{sasl.Plain} }

func (s *captureSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != "bot" || password != "pw" {
			return errors.New("invalid credentials")
		}
		s.cur.user = username
		return nil
	}), nil
}

func (s *captureSession) Mail(from string, opts *smtp.MailOptions) error {
	s.cur.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, opts *smtp.RcptOptions) error {
	s.cur.to = append(s.cur.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.cur.body = string(b)

	s.mu.Lock()
	*s.box = append(*s.box, s.cur)
	s.mu.Unlock()
	return nil
}

func (s *captureSession) Reset()        {}
func (s *captureSession) Logout() error { return nil }

// startSMTPServer runs a plain-text SMTP server on a loopback port and
// returns its port and a snapshot func for received mail.
func startSMTPServer(t *testing.T) (int, func() []capturedMail) {
	t.Helper()

	var mu sync.Mutex
	var box []capturedMail

	srv := smtp.NewServer(smtp.BackendFunc(func(c *smtp.Conn) (smtp.Session, error) {
		return &captureSession{mu: &mu, box: &box}, nil
	}))
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return l.Addr().(*net.TCPAddr).Port, func() []capturedMail {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedMail(nil), box...)
	}
}

func TestSMTPMailer_DeliversHTMLMessage(t *testing.T) {
	port, received := startSMTPServer(t)

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, Username: "bot", Password: "pw", From: "bot@example.com"})
	m.now = func() time.Time { return time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Send(ctx, Message{To: "jane@company.com", Subject: "Reminder: audit - Due Soon", HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("Send() err = %v", err)
	}

	mails := received()
	if len(mails) != 1 {
		t.Fatalf("received %d messages, want 1", len(mails))
	}
	got := mails[0]
	if got.from != "bot@example.com" || got.user != "bot" {
		t.Fatalf("from=%q user=%q", got.from, got.user)
	}
	if !reflect.DeepEqual(got.to, []string{"jane@company.com"}) {
		t.Fatalf("to = %v", got.to)
	}
	for _, want := range []string{"Subject: Reminder: audit - Due Soon", "text/html", "<p>hi</p>", "jane@company.com"} {
		if !strings.Contains(got.body, want) {
			t.Fatalf("message missing %q:\n%s", want, got.body)
		}
	}
}

func TestSMTPMailer_WrapsTransportError(t *testing.T) {
	port, _ := startSMTPServer(t)

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, Username: "bot", Password: "wrong", From: "bot@example.com"})

	err := m.Send(context.Background(), Message{To: "a@b.c", Subject: "s", HTML: "h"})
	if err == nil || !strings.Contains(err.Error(), "smtp send to a@b.c") {
		t.Fatalf("Send() err = %v, want wrapped auth failure", err)
	}
}

func TestSMTPMailer_SilentServerReleasesAttemptAtDeadline(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		_ = l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	// accept and never greet
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port, From: "bot@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = m.Send(ctx, Message{To: "a@b.c", Subject: "s", HTML: "h"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send() err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("Send() returned after %v", time.Since(start))
	}
}
