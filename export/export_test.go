package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urizennnn/gh-activity/activity"
	"github.com/xuri/excelize/v2"
)

func sample() []activity.Record {
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	closed := time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC)
	authored := time.Date(2024, 2, 4, 18, 30, 0, 0, time.UTC)
	return []activity.Record{
		{
			Kind: activity.KindPRsMerged, Org: "acme", Repo: "acme/api", Number: 12,
			Title: "Use <b>bold</b> & friends", State: "closed",
			URL:       "https://github.com/acme/api/pull/12",
			CreatedAt: &created, UpdatedAt: &closed, ClosedAt: &closed,
		},
		{
			Kind: activity.KindCommits, Org: "acme", Repo: "acme/api", SHA: "deadbeef",
			Message: "fix: comma, in subject", URL: "https://github.com/acme/api/commit/deadbeef",
			AuthorDate: &authored,
		},
	}
}

func TestPaths(t *testing.T) {
	r := activity.Range{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	p := Paths("out/github_activity", r)
	assert.Equal(t, "out/github_activity_2024-01-01_2024-12-31.json", p.JSON)
	assert.Equal(t, "out/github_activity_2024-01-01_2024-12-31.csv", p.CSV)
	assert.Equal(t, "out/github_activity_2024-01-01_2024-12-31.xlsx", p.XLSX)
	assert.Equal(t, "out/github_activity_2024-01-01_2024-12-31.summary.json", p.Summary)
}

func TestJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[\n  {\n"))
	assert.Contains(t, out, `"title": "Use <b>bold</b> & friends"`)
	assert.Contains(t, out, `"closed_at": "2024-02-03T09:00:00Z"`)
	// commit records carry no issue fields
	assert.Equal(t, 1, strings.Count(out, `"number"`))

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestCSVShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, activity.Fields, rows[0])
	assert.Equal(t, "12", rows[1][3])
	assert.Equal(t, "", rows[2][3])
	assert.Equal(t, "fix: comma, in subject", rows[2][11])
}

func TestCSVAndJSONAgree(t *testing.T) {
	var j, c bytes.Buffer
	require.NoError(t, WriteJSON(&j, sample()))
	require.NoError(t, WriteCSV(&c, sample()))

	fromJSON, err := ReadJSON(&j)
	require.NoError(t, err)
	fromCSV, err := ReadCSV(&c)
	require.NoError(t, err)

	assert.Equal(t, sample(), fromJSON)
	assert.Equal(t, fromJSON, fromCSV)
}

func TestReadRejectsUnknownKind(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`[{"kind":"stars","org":"acme","repo":"acme/api"}]`))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("kind,org\nstars,acme\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("org,repo\nacme,acme/api\n"))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	paths := Paths(filepath.Join(dir, "gh"), activity.Range{
		From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, WriteFile(paths.JSON, sample(), WriteJSON))
	require.NoError(t, WriteFile(paths.CSV, sample(), WriteCSV))

	a, err := ReadFile(paths.JSON)
	require.NoError(t, err)
	b, err := ReadFile(paths.CSV)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	_, err = ReadFile(other)
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.xlsx")
	require.NoError(t, WriteXLSX(path, sample()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, activity.Fields, rows[0])
	assert.Equal(t, "prs_merged", rows[1][0])
	assert.Equal(t, "12", rows[1][3])
	assert.Equal(t, "deadbeef", rows[2][10])
}
