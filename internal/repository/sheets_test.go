package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/pkg/sheets"
)

func newSheetsRepo(t *testing.T, opts ...sheets.MockOption) (*SheetsRepository, *sheets.MockClient) {
	t.Helper()
	client := sheets.NewMockClient(opts...)
	return NewSheets(client, logger.NewWithLevel(logger.ParseLevel("error")), ""), client
}

func TestVotesTab(t *testing.T) {
	if got := VotesTab(" S 25 "); got != "Votes_S25" {
		t.Errorf("VotesTab = %q", got)
	}
}

func TestSheetsLoadRoster_HeaderMapped(t *testing.T) {
	repo, _ := newSheetsRepo(t, sheets.WithSheet("Managers", []sheets.Row{
		{"Active", "Manager", "Club"},
		{"TRUE", " Jay  Jones ", "AS Monaco"},
		{"false", "Retired Rick", "Everton"},
		{"yes", "Regan Thompson"},
	}))

	got, err := repo.LoadRoster(context.Background())
	if err != nil {
		t.Fatalf("LoadRoster failed: %v", err)
	}
	want := []models.Manager{
		{Name: "Jay  Jones", Club: "AS Monaco", Active: true},
		{Name: "Retired Rick", Club: "Everton", Active: false},
		{Name: "Regan Thompson", Club: "", Active: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadRoster = %+v, want %+v", got, want)
	}
}

func TestSheetsLoadRoster_NameHeaderAlias(t *testing.T) {
	repo, _ := newSheetsRepo(t, sheets.WithSheet("Managers", []sheets.Row{
		{"name", "club", "active"},
		{"Adam", "Barcelona", "true"},
	}))

	got, err := repo.LoadRoster(context.Background())
	if err != nil || len(got) != 1 || got[0].Name != "Adam" {
		t.Errorf("unexpected roster %+v %v", got, err)
	}
}

func TestSheetsLoadRoster_EdgeCases(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		repo, _ := newSheetsRepo(t, sheets.WithSheet("Managers", []sheets.Row{{"Club", "Manager", "Active"}}))
		got, err := repo.LoadRoster(context.Background())
		if err != nil || len(got) != 0 {
			t.Errorf("expected empty roster, got %+v %v", got, err)
		}
	})

	t.Run("missing manager column", func(t *testing.T) {
		repo, _ := newSheetsRepo(t, sheets.WithSheet("Managers", []sheets.Row{{"Club", "Active"}, {"Ajax", "true"}}))
		if _, err := repo.LoadRoster(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("read failure", func(t *testing.T) {
		boom := errors.New("403 forbidden")
		repo, _ := newSheetsRepo(t, sheets.WithGetError(boom))
		if _, err := repo.LoadRoster(context.Background()); !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})
}

func TestSheetsReplaceRoster(t *testing.T) {
	repo, client := newSheetsRepo(t, sheets.WithSheet("Managers", []sheets.Row{{"old"}, {"x"}, {"y"}}))

	err := repo.ReplaceRoster(context.Background(), []models.Manager{{Name: "Adam", Club: "Barcelona", Active: true}})
	if err != nil {
		t.Fatalf("ReplaceRoster failed: %v", err)
	}
	want := []sheets.Row{{"Club", "Manager", "Active"}, {"Barcelona", "Adam", "true"}}
	if got := client.Sheet("Managers"); !reflect.DeepEqual(got, want) {
		t.Errorf("Managers tab = %v, want %v", got, want)
	}
}

func TestSheetsBallots_UpsertCreatesTabAndReplacesInPlace(t *testing.T) {
	repo, client := newSheetsRepo(t)
	ctx := context.Background()

	if err := repo.UpsertBallot(ctx, ballotRow(jayMonaco, "overall", "andre_libras", t0)); err != nil {
		t.Fatalf("UpsertBallot failed: %v", err)
	}
	if err := repo.UpsertBallot(ctx, ballotRow(jaySchalke, "overall", "andre_libras", t0)); err != nil {
		t.Fatalf("UpsertBallot failed: %v", err)
	}
	if err := repo.UpsertBallot(ctx, ballotRow(models.Identity{Name: "JAY JONES", Club: "as monaco"}, "overall", "david_marsden", t0.Add(time.Minute))); err != nil {
		t.Fatalf("UpsertBallot failed: %v", err)
	}

	tab := client.Sheet("Votes_S25")
	if len(tab) != 3 {
		t.Fatalf("expected header + 2 rows, got %v", tab)
	}
	if tab[0][0] != "timestamp" {
		t.Errorf("expected header row, got %v", tab[0])
	}

	rows, err := repo.ListBallots(ctx, "S25")
	if err != nil {
		t.Fatalf("ListBallots failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ballots, got %+v", rows)
	}
	if rows[0].NomineeID != "david_marsden" || !rows[0].Timestamp.Equal(t0.Add(time.Minute)) {
		t.Errorf("expected first slot replaced in place, got %+v", rows[0])
	}
}

func TestSheetsListBallots_AppendOnlyHistory(t *testing.T) {
	repo, _ := newSheetsRepo(t, sheets.WithSheet("Votes_S25", []sheets.Row{
		{"timestamp", "season", "managerName", "managerClub", "category", "nomineeId", "nomineeName"},
		{"2025-09-01T12:00:00Z", "S25", "Jay Jones", "", "overall", "andre_libras", "André"},
		{"2025-09-01T13:00:00Z", "", "Jay Jones", "", "overall", "david_marsden", "David"},
	}))

	rows, err := repo.ListBallots(context.Background(), "S25")
	if err != nil {
		t.Fatalf("ListBallots failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both history rows, got %d", len(rows))
	}
	if rows[1].Season != "S25" {
		t.Errorf("expected missing season to default, got %q", rows[1].Season)
	}
}

func TestSheetsListBallots_MissingTab(t *testing.T) {
	repo, _ := newSheetsRepo(t)
	rows, err := repo.ListBallots(context.Background(), "S25")
	if err != nil || rows != nil {
		t.Errorf("expected no ballots, got %+v %v", rows, err)
	}
}

func TestSheetsDeleteBallot(t *testing.T) {
	repo, client := newSheetsRepo(t)
	ctx := context.Background()
	repo.UpsertBallot(ctx, ballotRow(jayMonaco, "overall", "andre_libras", t0))
	repo.UpsertBallot(ctx, ballotRow(jaySchalke, "overall", "andre_libras", t0))

	if err := repo.DeleteBallot(ctx, "S25", jayMonaco, "overall"); err != nil {
		t.Fatalf("DeleteBallot failed: %v", err)
	}
	updates := client.Calls("update")
	if err := repo.DeleteBallot(ctx, "S25", jayMonaco, "overall"); err != nil {
		t.Fatalf("DeleteBallot of empty slot failed: %v", err)
	}
	if client.Calls("update") != updates {
		t.Error("expected no rewrite when nothing matched")
	}

	rows, _ := repo.ListBallots(ctx, "S25")
	if len(rows) != 1 || rows[0].ManagerClub != "FC Schalke 04" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func seededVotes() sheets.MockOption {
	return sheets.WithSheet("Votes_S25", []sheets.Row{
		{"timestamp", "season", "managerName", "managerClub", "category", "nomineeId", "nomineeName"},
		{"2025-09-01T12:00:00Z", "S25", "Adam", "Barcelona", "overall", "andre_libras", "André"},
		{"2025-09-01T12:05:00Z", "S25", "Jay Jones", "AS Monaco", "overall", "david_marsden", "David"},
		{"2025-09-01T12:10:00Z", "S25", "Jay Jones", "FC Schalke 04", "overall", "andre_libras", "André"},
	})
}

func TestSheetsDeleteBallot_ShrinksTab(t *testing.T) {
	repo, client := newSheetsRepo(t, seededVotes())
	ctx := context.Background()

	if err := repo.DeleteBallot(ctx, "S25", models.Identity{Name: "Adam", Club: "Barcelona"}, "overall"); err != nil {
		t.Fatalf("DeleteBallot failed: %v", err)
	}
	tab := client.Sheet("Votes_S25")
	if len(tab) != 3 {
		t.Fatalf("expected header + 2 rows, got %v", tab)
	}
	if tab[2][3] != "FC Schalke 04" {
		t.Errorf("expected the last ballot moved up, got %v", tab[2])
	}
}

func TestSheetsRewriteFailure_KeepsRows(t *testing.T) {
	boom := errors.New("backend error")

	t.Run("delete ballot", func(t *testing.T) {
		repo, client := newSheetsRepo(t, seededVotes())
		client.SetUpdateError(boom)
		ctx := context.Background()

		if err := repo.DeleteBallot(ctx, "S25", models.Identity{Name: "Adam", Club: "Barcelona"}, "overall"); !errors.Is(err, boom) {
			t.Fatalf("expected %v, got %v", boom, err)
		}
		rows, err := repo.ListBallots(ctx, "S25")
		if err != nil {
			t.Fatalf("ListBallots failed: %v", err)
		}
		if len(rows) != 3 {
			t.Errorf("expected all 3 ballots kept, got %d", len(rows))
		}
	})

	t.Run("delete ballot, trim fails", func(t *testing.T) {
		repo, client := newSheetsRepo(t, seededVotes(), sheets.WithClearError(boom))
		ctx := context.Background()

		if err := repo.DeleteBallot(ctx, "S25", models.Identity{Name: "Jay Jones", Club: "AS Monaco"}, "overall"); !errors.Is(err, boom) {
			t.Fatalf("expected %v, got %v", boom, err)
		}
		rows, _ := repo.ListBallots(ctx, "S25")
		if len(rows) < 2 {
			t.Errorf("expected surviving ballots to remain, got %+v", rows)
		}
		if len(client.Sheet("Votes_S25")) != 4 {
			t.Errorf("expected the tab to keep its length, got %v", client.Sheet("Votes_S25"))
		}
	})

	t.Run("replace roster", func(t *testing.T) {
		managers := []sheets.Row{{"Club", "Manager", "Active"}, {"Barcelona", "Adam", "true"}, {"AS Monaco", "Jay Jones", "true"}}
		repo, client := newSheetsRepo(t, sheets.WithSheet("Managers", managers))
		client.SetUpdateError(boom)
		ctx := context.Background()

		if err := repo.ReplaceRoster(ctx, []models.Manager{{Name: "Solo", Active: true}}); !errors.Is(err, boom) {
			t.Fatalf("expected %v, got %v", boom, err)
		}
		got, err := repo.LoadRoster(ctx)
		if err != nil {
			t.Fatalf("LoadRoster failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected the old roster kept, got %+v", got)
		}
	})
}

func TestSheetsClearBallots_RewritesHeader(t *testing.T) {
	repo, client := newSheetsRepo(t)
	ctx := context.Background()
	repo.UpsertBallot(ctx, ballotRow(jayMonaco, "overall", "andre_libras", t0))

	if err := repo.ClearBallots(ctx, "S25"); err != nil {
		t.Fatalf("ClearBallots failed: %v", err)
	}
	tab := client.Sheet("Votes_S25")
	if len(tab) != 1 || tab[0][0] != "timestamp" {
		t.Errorf("expected header only, got %v", tab)
	}
	if rows, _ := repo.ListBallots(ctx, "S25"); len(rows) != 0 {
		t.Errorf("expected no ballots, got %+v", rows)
	}
}

func TestSheetsClearBallots_CreatesMissingTab(t *testing.T) {
	repo, client := newSheetsRepo(t)
	if err := repo.ClearBallots(context.Background(), "S26"); err != nil {
		t.Fatalf("ClearBallots failed: %v", err)
	}
	if tab := client.Sheet("Votes_S26"); len(tab) != 1 {
		t.Errorf("expected header row, got %v", tab)
	}
}

func TestSheetsUpsertBallot_AppendFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	repo, _ := newSheetsRepo(t, sheets.WithAppendError(boom))

	if err := repo.UpsertBallot(context.Background(), ballotRow(jayMonaco, "overall", "andre_libras", t0)); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}

func TestSheetsSettings(t *testing.T) {
	repo, client := newSheetsRepo(t)
	ctx := context.Background()

	if _, err := repo.GetSetting(ctx, "VOTING_DEADLINE_UTC"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.SetSetting(ctx, "VOTING_DEADLINE_UTC", "2025-09-15T23:59:59Z"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := repo.SetSetting(ctx, "VOTING_DEADLINE_UTC", "2025-09-20T23:59:59Z"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	got, err := repo.GetSetting(ctx, "VOTING_DEADLINE_UTC")
	if err != nil || got != "2025-09-20T23:59:59Z" {
		t.Errorf("GetSetting = %q, %v", got, err)
	}
	want := []sheets.Row{{"Key", "Value"}, {"VOTING_DEADLINE_UTC", "2025-09-20T23:59:59Z"}}
	if tab := client.Sheet("Config"); !reflect.DeepEqual(tab, want) {
		t.Errorf("Config tab = %v, want %v", tab, want)
	}
	if _, err := repo.GetSetting(ctx, "OTHER"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSheetsArchive_HeaderWrittenOnce(t *testing.T) {
	repo, client := newSheetsRepo(t)
	ctx := context.Background()
	row := models.ArchiveRow{SnapshotID: "snap-1", Timestamp: t0, Season: "S25", Category: "overall", NomineeID: "andre_libras", NomineeName: "André", Votes: 2}

	if err := repo.AppendArchive(ctx, []models.ArchiveRow{row}); err != nil {
		t.Fatalf("AppendArchive failed: %v", err)
	}
	if err := repo.AppendArchive(ctx, []models.ArchiveRow{row}); err != nil {
		t.Fatalf("AppendArchive failed: %v", err)
	}

	tab := client.Sheet("Archive")
	if len(tab) != 3 || tab[0][0] != "Timestamp" || tab[2][0] == "Timestamp" {
		t.Errorf("unexpected archive tab %v", tab)
	}

	got, err := repo.ListArchive(ctx, "S25")
	if err != nil {
		t.Fatalf("ListArchive failed: %v", err)
	}
	if len(got) != 2 || got[0].Votes != 2 || !got[0].Timestamp.Equal(t0) || got[0].SnapshotID != "snap-1" {
		t.Errorf("unexpected archive rows %+v", got)
	}
	if other, _ := repo.ListArchive(ctx, "S24"); len(other) != 0 {
		t.Errorf("expected no S24 rows, got %+v", other)
	}
}

func TestSheetsPing(t *testing.T) {
	boom := errors.New("unreachable")
	repo, _ := newSheetsRepo(t, sheets.WithSheetTitlesError(boom))
	if err := repo.Ping(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
	if err := repo.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
