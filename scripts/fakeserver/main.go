// Command fakeserver serves an in-memory issue tracker seeded with fake
// projects and issues, for running issuecrank locally:
//
//	go run ./scripts/fakeserver --port 8080 --projects 3 --issues 120
//	issuecrank crawl-all-issues -c local.toml   # base_url = "http://localhost:8080"
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/torosent/issuecrank/internal/logging"
	"github.com/torosent/issuecrank/internal/tracker"
	"github.com/torosent/issuecrank/internal/trackertest"
)

func main() {
	fs := pflag.NewFlagSet("fakeserver", pflag.ExitOnError)
	port := fs.Int("port", 8080, "Listening port")
	projects := fs.Int("projects", 2, "Number of seeded projects")
	issues := fs.Int("issues", 75, "Active issues per project")
	token := fs.String("token", "", "Require this bearer token (empty accepts any)")
	latency := fs.Duration("latency", 20*time.Millisecond, "Delay added to every response")
	seedValue := fs.Uint64("seed", 1, "Seed for generated data")
	_ = fs.Parse(os.Args[1:])

	logger, err := logging.New("info", os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	srv := seedServer(gofakeit.New(*seedValue), *projects, *issues)
	srv.Token = *token
	srv.Latency = *latency

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("fake tracker listening",
		zap.String("addr", addr),
		zap.Int("projects", len(srv.Projects)),
		zap.String("project_id", srv.Project.ID),
	)
	if err := http.ListenAndServe(addr, srv); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func seedServer(f *gofakeit.Faker, projects, issuesPerProject int) *trackertest.Server {
	srv := trackertest.New()
	srv.User = tracker.User{ID: f.UUID(), Username: f.Username()}

	for _, name := range []string{"Todo", "In progress", "Review", "Done"} {
		srv.Statuses = append(srv.Statuses, tracker.IssueStatus{ID: f.UUID(), Name: name})
	}
	for i := 0; i < 6; i++ {
		srv.Labels = append(srv.Labels, tracker.Label{ID: f.UUID(), Name: f.BuzzWord()})
	}
	for i := 0; i < 5; i++ {
		m := tracker.ProjectMember{ID: f.UUID()}
		if i%4 != 0 {
			m.User = &tracker.User{ID: f.UUID(), Username: f.Username()}
		}
		srv.Members = append(srv.Members, m)
	}
	for i := 0; i < 3; i++ {
		srv.Initiatives = append(srv.Initiatives, tracker.Issue{ID: f.UUID(), Type: "initiative", Title: f.BS()})
		srv.Epics = append(srv.Epics, tracker.Issue{ID: f.UUID(), Type: "epic", Title: f.BS()})
	}

	for p := 0; p < projects; p++ {
		name := f.AppName()
		project := tracker.Project{
			ID:   f.UUID(),
			Key:  strings.ToUpper(f.LetterN(4)),
			Name: name,
			Preferences: &tracker.ProjectPreferences{
				IssueType:    "task",
				EstimateType: tracker.EstimatePoints,
			},
		}
		srv.Projects = append(srv.Projects, project)
		for i := 1; i <= issuesPerProject; i++ {
			srv.Issues[project.ID] = append(srv.Issues[project.ID], tracker.Issue{
				ID:        f.UUID(),
				Key:       fmt.Sprintf("%s-%d", project.Key, i),
				ProjectID: project.ID,
				Type:      "task",
				Title:     f.HackerPhrase(),
			})
		}
	}
	if len(srv.Projects) > 0 {
		srv.Project = srv.Projects[0]
	}
	return srv
}
