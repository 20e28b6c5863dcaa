package tracker

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	n := NewSMTPNotifier("mail.internal:25", "ca-tracker@internal", []string{"ops@internal", "desk@internal"})

	upcoming := viewRecord("REF001", "2024-01-12")
	upcoming.Deadline = day("2024-01-12")
	upcoming.DeadlineSource = DeadlineSourceClient
	upcoming.Comment = "watch <this>"

	msg := n.buildMessage(RunSummary{
		Next15Count:  1,
		Last7Count:   2,
		ArchiveCount: 3,
		OutputPath:   "/out/CA_Tracking.xlsx",
		Today:        day("2024-01-10"),
		Upcoming:     []Record{upcoming},
	})

	for _, want := range []string{
		"From: ca-tracker@internal\r\n",
		"To: ops@internal, desk@internal\r\n",
		"Subject: DAILY CA CHECK\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"Next 15 Days: 1 CAs<br>Last 7 Days: 2 CAs<br>Archive: 3 CAs",
		"File saved to: /out/CA_Tracking.xlsx",
		"<th>Urgency</th>",
		"<td>ACME CORP</td>",
		"<td>2024-01-12</td>",
		"<td>" + UrgencyUrgent + "</td>",
		"<td>watch &lt;this&gt;</td>",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestRenderSummaryHTML_UrgencyPerRow(t *testing.T) {
	soon := viewRecord("REF001", "2024-01-11")
	soon.Deadline = day("2024-01-11")
	later := viewRecord("REF002", "2024-01-20")
	later.Deadline = day("2024-01-20")

	out := renderSummaryHTML(RunSummary{
		Today:    day("2024-01-10"),
		Upcoming: []Record{soon, later},
	})
	if !strings.Contains(out, "<td>"+UrgencyUrgent+"</td>") {
		t.Fatalf("missing urgent tag:\n%s", out)
	}
	if !strings.Contains(out, "<td>"+UrgencyUpcoming+"</td>") {
		t.Fatalf("missing upcoming tag:\n%s", out)
	}
}

func TestRenderSummaryHTML_NoUpcoming(t *testing.T) {
	out := renderSummaryHTML(RunSummary{OutputPath: "/out/CA_Tracking.xlsx"})
	if strings.Contains(out, "<table") {
		t.Fatalf("empty view must not render a table:\n%s", out)
	}
}
