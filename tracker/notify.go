package tracker

import (
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// RunSummary is what gets reported outward after a successful run.
type RunSummary struct {
	Next15Count  int
	Last7Count   int
	ArchiveCount int
	OutputPath   string
	// Today anchors the urgency classification of the Upcoming rows.
	Today time.Time
	// Upcoming is the Next 15 Days view, rendered as a table in the mail body.
	Upcoming []Record
}

// Notifier sends the run summary somewhere. Failures must never abort a run;
// the runner logs them and moves on.
type Notifier interface {
	SendSummary(s RunSummary, timeout time.Duration) error
}

// SMTPNotifier mails the summary as "DAILY CA CHECK" with an HTML table of
// upcoming CAs.
type SMTPNotifier struct {
	addr string
	from string
	to   []string
}

func NewSMTPNotifier(addr, from string, to []string) *SMTPNotifier {
	return &SMTPNotifier{addr: addr, from: from, to: to}
}

func (n *SMTPNotifier) SendSummary(s RunSummary, timeout time.Duration) error {
	var conn net.Conn
	var err error
	if timeout > 0 {
		conn, err = net.DialTimeout("tcp", n.addr, timeout)
	} else {
		conn, err = net.Dial("tcp", n.addr)
	}
	if err != nil {
		return err
	}
	defer conn.Close()
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	host, _, err := net.SplitHostPort(n.addr)
	if err != nil {
		host = n.addr
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(n.from); err != nil {
		return err
	}
	for _, rcpt := range n.to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(n.buildMessage(s))); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (n *SMTPNotifier) buildMessage(s RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.to, ", "))
	b.WriteString("Subject: DAILY CA CHECK\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(renderSummaryHTML(s))
	return b.String()
}

func renderSummaryHTML(s RunSummary) string {
	var b strings.Builder
	b.WriteString("<p>CA Tracking updated successfully.</p>")
	fmt.Fprintf(&b, "<p>Next 15 Days: %d CAs<br>Last 7 Days: %d CAs<br>Archive: %d CAs</p>",
		s.Next15Count, s.Last7Count, s.ArchiveCount)
	fmt.Fprintf(&b, "<p>File saved to: %s</p>", html.EscapeString(s.OutputPath))

	if len(s.Upcoming) > 0 {
		b.WriteString("<table border=\"1\"><tr>")
		for _, col := range []string{colSecurityName, colEventType, colClient, colReferenceID, colDeadlineDate, colDeadlineType, "Urgency", colComments} {
			fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(col))
		}
		b.WriteString("</tr>")
		for _, rec := range s.Upcoming {
			urgency := DeadlineUrgency(rec.Deadline, s.Today)
			b.WriteString("<tr>")
			for _, v := range []string{rec.SecurityName, rec.EventType, rec.Client, rec.ReferenceID, formatDate(rec.Deadline), rec.DeadlineSource, urgency, rec.Comment} {
				fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(v))
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</table>")
	}
	return b.String()
}

// LogNotifier prints the summary on stdout via the standard logger. Used when
// no SMTP address is configured.
type LogNotifier struct{}

func (LogNotifier) SendSummary(s RunSummary, _ time.Duration) error {
	fmt.Printf("SUCCESS: Next 15 Days: %d CAs, Last 7 Days: %d CAs, Archive: %d CAs\nOutput file: %s\n",
		s.Next15Count, s.Last7Count, s.ArchiveCount, s.OutputPath)
	return nil
}
