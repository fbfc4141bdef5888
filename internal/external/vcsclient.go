package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommitMeta is one commit's metadata as returned by CommitsSinceTag.
type CommitMeta struct {
	SHA     string
	Author  string
	Date    time.Time
	Subject string
}

// VCSClient is the four read-only primitives the dispatcher-side
// signal handlers need. It is never invoked from the engine itself —
// only from cmd/bridge's handlers that react to a SIGNAL:... line.
type VCSClient interface {
	CurrentBranch(ctx context.Context) (string, error)
	Diff(ctx context.Context, fromRef, toRef string) (string, error)
	Tags(ctx context.Context) ([]string, error)
	CommitsSinceTag(ctx context.Context, tag string) ([]CommitMeta, error)
	ReadRemoteFile(ctx context.Context, repo, ref, path string) ([]byte, error)
}

// GitVCSClient shells out to git and gh. Repo is the working directory
// git/gh are run in; ReadRemoteFile additionally takes an explicit repo
// argument (owner/name) since it may target a different repository
// than the one GitVCSClient is rooted in.
type GitVCSClient struct {
	Dir string
}

func (c *GitVCSClient) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

func (c *GitVCSClient) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *GitVCSClient) Diff(ctx context.Context, fromRef, toRef string) (string, error) {
	return c.run(ctx, "git", "diff", fromRef, toRef)
}

func (c *GitVCSClient) Tags(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "git", "tag", "--list")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

func (c *GitVCSClient) CommitsSinceTag(ctx context.Context, tag string) ([]CommitMeta, error) {
	const sep = "\x1f"
	out, err := c.run(ctx, "git", "log", tag+"..HEAD", "--format=%H"+sep+"%an"+sep+"%aI"+sep+"%s")
	if err != nil {
		return nil, err
	}
	var commits []CommitMeta
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, sep)
		if len(fields) != 4 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, fields[2])
		commits = append(commits, CommitMeta{SHA: fields[0], Author: fields[1], Date: ts, Subject: fields[3]})
	}
	return commits, nil
}

// ReadRemoteFile fetches a file's content at ref via the GitHub
// contents API, which returns base64-encoded content.
func (c *GitVCSClient) ReadRemoteFile(ctx context.Context, repo, ref, path string) ([]byte, error) {
	out, err := c.run(ctx, "gh", "api", fmt.Sprintf("repos/%s/contents/%s", repo, path), "-f", "ref="+ref, "--jq", ".content")
	if err != nil {
		return nil, err
	}
	encoded := strings.ReplaceAll(strings.TrimSpace(out), "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode remote file content: %w", err)
	}
	return decoded, nil
}
