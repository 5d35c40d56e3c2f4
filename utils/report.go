package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"taskhub/models"
)

const (
	ReportTypeTask      = "Task"
	ReportTypeTaskIssue = "Task Issue"
	ReportTypeIssue     = "Issue"
)

var ReportHeader = []string{
	"Report Type",
	"Title",
	"Description",
	"Status",
	"Priority",
	"Created At",
	"Updated At",
	"Due Date",
}

var nonSlugChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// BuildReportRows flattens tasks (with their issues loaded) and standalone
// issues into CSV records. Tasks come first, most recently updated first, each
// followed by its own issues; standalone issues follow in the same order.
func BuildReportRows(tasks []models.Task, standalone []models.Issue) [][]string {
	tasks = append([]models.Task(nil), tasks...)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})

	rows := make([][]string, 0, len(tasks)+len(standalone))
	for _, task := range tasks {
		rows = append(rows, []string{
			ReportTypeTask,
			task.Title,
			task.Description,
			string(task.Status),
			string(task.Priority),
			formatDate(&task.CreatedAt),
			formatDate(&task.UpdatedAt),
			formatDate(task.DueDate),
		})

		for _, issue := range sortIssues(task.Issues) {
			rows = append(rows, issueRow(ReportTypeTaskIssue, issue))
		}
	}

	for _, issue := range sortIssues(standalone) {
		rows = append(rows, issueRow(ReportTypeIssue, issue))
	}
	return rows
}

// WriteReportCSV writes the header and rows as CSV.
func WriteReportCSV(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ReportHeader); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

// ReportFilename builds "<user-name>-<month>-<year>-report.csv".
func ReportFilename(userName string, start time.Time) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(userName), "-"), "-")
	if slug == "" {
		slug = "user"
	}
	return fmt.Sprintf("%s-%s-%d-report.csv", slug, strings.ToLower(start.Month().String()), start.Year())
}

func issueRow(kind string, issue models.Issue) []string {
	return []string{
		kind,
		issue.Title,
		issue.Description,
		string(issue.Status),
		string(issue.Priority),
		formatDate(&issue.CreatedAt),
		formatDate(&issue.UpdatedAt),
		"",
	}
}

func sortIssues(issues []models.Issue) []models.Issue {
	sorted := append([]models.Issue(nil), issues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return sorted
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
