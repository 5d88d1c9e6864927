package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/models"
)

// GitHub is a remote backed by a GitHub repository through the contents API.
// Tokens are blob SHAs; writes commit to the default branch.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHub returns a client authenticated with settings.Token. baseURL overrides the
// public API endpoint when non-empty.
func NewGitHub(settings models.Settings, httpClient *http.Client, baseURL string) (*GitHub, error) {
	client := github.NewClient(httpClient).WithAuthToken(settings.Token)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("remote: github base url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHub{client: client, owner: settings.Owner, repo: settings.Repo}, nil
}

// List enumerates every .md blob of the default branch tree.
func (g *GitHub) List(ctx context.Context) ([]models.RemoteItem, error) {
	repo, res, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		if statusOf(res, err) == http.StatusNotFound {
			return []models.RemoteItem{}, nil
		}
		return nil, classify("list", g.repo, res, err)
	}
	tree, res, err := g.client.Git.GetTree(ctx, g.owner, g.repo, repo.GetDefaultBranch(), true)
	if err != nil {
		// An empty repository has no tree yet.
		switch statusOf(res, err) {
		case http.StatusNotFound, http.StatusConflict:
			return []models.RemoteItem{}, nil
		}
		return nil, classify("list", g.repo, res, err)
	}
	out := []models.RemoteItem{}
	for _, e := range tree.Entries {
		if e.GetType() != "blob" || !models.IsNotePath(e.GetPath()) {
			continue
		}
		out = append(out, models.RemoteItem{
			Slug:  models.SlugFromPath(e.GetPath()),
			Path:  e.GetPath(),
			Token: e.GetSHA(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read fetches one file. A missing path or a directory yields nil.
func (g *GitHub) Read(ctx context.Context, path string) (*models.RemoteContent, error) {
	fc, _, res, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, nil)
	if err != nil {
		if statusOf(res, err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, classify("read", path, res, err)
	}
	if fc == nil {
		return nil, nil
	}
	body, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("remote: read %s: %w", path, err)
	}
	return &models.RemoteContent{Body: body, Token: fc.GetSHA()}, nil
}

// Write creates path when token is empty and updates it otherwise.
func (g *GitHub) Write(ctx context.Context, path, body, message, token string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(body),
	}
	var (
		out *github.RepositoryContentResponse
		res *github.Response
		err error
	)
	if token == "" {
		out, res, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
	} else {
		opts.SHA = github.String(token)
		out, res, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
	}
	if err != nil {
		return "", classify("write", path, res, err)
	}
	if out == nil || out.Content == nil {
		return "", fmt.Errorf("remote: write %s: response carries no content", path)
	}
	return out.Content.GetSHA(), nil
}

// Delete removes path at token.
func (g *GitHub) Delete(ctx context.Context, path, message, token string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(token),
	}
	_, res, err := g.client.Repositories.DeleteFile(ctx, g.owner, g.repo, path, opts)
	if err != nil {
		return classify("delete", path, res, err)
	}
	return nil
}

func statusOf(res *github.Response, err error) int {
	if res != nil && res.Response != nil {
		return res.StatusCode
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	return 0
}

// classify wraps a go-github error with the matching apperr kind.
func classify(op, path string, res *github.Response, err error) error {
	var (
		rate  *github.RateLimitError
		abuse *github.AbuseRateLimitError
	)
	if errors.As(err, &rate) || errors.As(err, &abuse) {
		return fmt.Errorf("remote: %s %s: %w: %w", op, path, apperr.ErrNetwork, err)
	}
	switch code := statusOf(res, err); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("remote: %s %s: %w: %w", op, path, apperr.ErrAuth, err)
	case code == http.StatusNotFound:
		return fmt.Errorf("remote: %s %s: %w: %w", op, path, apperr.ErrNotFound, err)
	case code == http.StatusConflict || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("remote: %s %s: %w: %w", op, path, apperr.ErrConflict, err)
	default:
		return fmt.Errorf("remote: %s %s: %w: %w", op, path, apperr.ErrNetwork, err)
	}
}

var _ Store = (*GitHub)(nil)
