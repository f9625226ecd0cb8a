package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/library"
	"github.com/listenupapp/librarian/internal/store"
)

// Result messages shown to the user.
const (
	MsgSyncComplete     = "Sync Complete"
	MsgSyncStopped      = "Sync Stopped"
	MsgInvalidParams    = "Invalid Params"
	MsgDownloadFailed   = "Download Failed"
	MsgTrackListMissing = "Tracklist missing"
	MsgScanComplete     = "Scan complete"
	MsgScanStopped      = "Scan stopped"
	MsgUnavailable      = "Not Available"
)

func (e *Engine) runLookup(ctx context.Context, job domain.Job) domain.JobResult {
	if e.deps.Lookup == nil {
		return domain.JobResult{Message: MsgUnavailable}
	}
	if job.Target == "" {
		return domain.JobResult{Message: MsgInvalidParams}
	}
	e.setStatus("Looking up " + job.Target)

	var rec domain.Record
	err := e.retry(ctx, func() error {
		var err error
		rec, err = e.deps.Lookup.LookupByCode(ctx, job.RecordKind, job.Target)
		return err
	})
	if err != nil {
		e.logger.Warn("metadata lookup failed", slog.String("code", job.Target), slog.Any("error", err))
		return domain.JobResult{Message: "Lookup failed: " + job.Target}
	}
	if d, ok := rec.(*domain.Disc); ok && d.ReleaseID != "" {
		e.attachTrackList(ctx, d)
	}
	return domain.JobResult{Success: true, Message: "Fetched: " + rec.View().Title, Record: rec}
}

// attachTrackList makes sure the release's track list is on the card and
// copies its track count and running time onto d. A list already on the
// card is kept so its lyrics state survives a repeated lookup. Failures
// leave d as looked up.
func (e *Engine) attachTrackList(ctx context.Context, d *domain.Disc) {
	if e.deps.Tracks == nil {
		return
	}
	log := e.logger.With(slog.String("release", d.ReleaseID))
	tl, err := e.deps.Tracks.LoadTrackList(ctx, d.ReleaseID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) || e.deps.TrackInfo == nil {
			log.Debug("track list unavailable", slog.Any("error", err))
			return
		}
		err = e.retry(ctx, func() error {
			var ferr error
			tl, ferr = e.deps.TrackInfo.FetchTrackList(ctx, d.ReleaseID)
			return ferr
		})
		if err != nil {
			log.Warn("track list fetch failed", slog.Any("error", err))
			return
		}
		if tl.Title == "" {
			tl.Title = d.Title
		}
		if tl.Artist == "" {
			tl.Artist = d.Artist
		}
		if err := e.deps.Tracks.SaveTrackList(ctx, tl); err != nil {
			log.Error("save track list failed", slog.Any("error", err))
			return
		}
		log.Info("track list stored", slog.Int("tracks", len(tl.Tracks)))
	}
	d.TrackCount = len(tl.Tracks)
	d.TotalDurationMs = tl.TotalDurationMs()
}

func (e *Engine) runCoverDownload(ctx context.Context, job domain.Job, log *slog.Logger) domain.JobResult {
	e.setStatus("Downloading cover...")
	if job.Target == "" || job.Extra == "" {
		return domain.JobResult{Message: MsgInvalidParams}
	}
	if e.deps.Downloader == nil {
		return domain.JobResult{Message: MsgUnavailable}
	}
	err := e.retry(ctx, func() error {
		_, err := e.deps.Downloader.Download(ctx, job.Target, job.Extra)
		return err
	})
	if err != nil {
		log.Error("cover download failed", slog.String("dest", job.Extra), slog.Any("error", err))
		return domain.JobResult{Message: MsgDownloadFailed}
	}
	return domain.JobResult{Success: true, Message: "Downloaded to " + job.Extra}
}

// runBulkSync walks every item of the job's kind and makes sure its cover
// is on the card. The library lock is held only inside the Library calls;
// the existence check takes the bus lock alone and network calls run with
// no lock held. Saves defer the index rewrite to a single rewrite at the
// end, which runs even when the sync is stopped.
func (e *Engine) runBulkSync(ctx context.Context, job domain.Job, log *slog.Logger) domain.JobResult {
	lib := e.deps.Library
	if lib == nil || e.deps.Covers == nil {
		return domain.JobResult{Message: MsgUnavailable}
	}
	kind := job.RecordKind

	total, err := lib.Count(ctx, kind)
	if err != nil {
		log.Warn("sync could not read the library", slog.Any("error", err))
		return domain.JobResult{Message: MsgSyncStopped}
	}

	var downloaded, found, skipped int
	stopped := false
	for i := range total {
		if e.StopRequested() || ctx.Err() != nil {
			log.Info("sync stopping requested", slog.Int("processed", i))
			stopped = true
			break
		}
		e.setProgress(i, total)

		outcome, err := e.syncItem(ctx, kind, i, log)
		switch outcome {
		case syncFound:
			found++
		case syncDownloaded:
			downloaded++
		case syncSkipped:
			skipped++
			log.Debug("sync skipped item", slog.Int("index", i), slog.Any("error", err))
		}

		if err := e.pause(ctx, e.cfg.ItemPacing); err != nil {
			stopped = true
			break
		}
	}

	// The final rewrite must survive a canceled job context.
	if err := lib.RewriteIndex(context.WithoutCancel(ctx), kind); err != nil {
		log.Error("index rewrite after sync failed", slog.Any("error", err))
	}

	log.Info("sync finished",
		slog.Int("total", total),
		slog.Int("downloaded", downloaded),
		slog.Int("found_on_card", found),
		slog.Int("skipped", skipped),
		slog.Bool("stopped", stopped),
	)
	if stopped {
		return domain.JobResult{Message: MsgSyncStopped}
	}
	return domain.JobResult{Success: true, Message: MsgSyncComplete}
}

type syncOutcome int

const (
	syncUnchanged syncOutcome = iota
	syncFound                 // cover was on the card but not recorded
	syncDownloaded
	syncSkipped
)

// syncItem brings one item's cover up to date. The error explains a
// skipped item.
func (e *Engine) syncItem(ctx context.Context, kind domain.Kind, index int, log *slog.Logger) (syncOutcome, error) {
	lib := e.deps.Library

	rec, err := lib.Hydrate(ctx, kind, index)
	if err != nil {
		return syncSkipped, err
	}
	v := rec.View()
	e.setStatus("Sync: " + v.Title)

	// Bus lock only from here.
	if v.CoverFile != "" {
		ok, err := e.deps.Covers.CoverExists(ctx, v.CoverFile)
		if err != nil {
			return syncSkipped, err
		}
		if ok {
			return syncUnchanged, nil
		}
	}
	name := lib.CoverFileName(kind, v.ID)
	ok, err := e.deps.Covers.CoverExists(ctx, name)
	if err != nil {
		return syncSkipped, err
	}
	if ok {
		if err := lib.UpdateCover(ctx, kind, v.ID, library.CoverUpdate{File: name}, true); err != nil {
			return syncSkipped, err
		}
		log.Debug("cover already on card", slog.String("id", v.ID), slog.String("file", name))
		return syncFound, nil
	}

	// No lock held for the network.
	url := v.CoverURL
	if e.deps.Resolver != nil {
		var resolved string
		err := e.retry(ctx, func() error {
			var err error
			resolved, err = e.deps.Resolver.ResolveCoverURL(ctx, kind, v.Creator, v.Title)
			return err
		})
		switch {
		case err == nil:
			url = resolved
		case url != "":
			log.Debug("cover URL lookup failed, using recorded URL", slog.String("id", v.ID), slog.Any("error", err))
		default:
			return syncSkipped, err
		}
	}
	if url == "" {
		return syncSkipped, errors.NotFoundf("no cover URL for %s", v.ID)
	}
	if e.deps.Downloader == nil {
		return syncSkipped, errors.Internal("no downloader")
	}

	var hash string
	err = e.retry(ctx, func() error {
		res, err := e.deps.Downloader.Download(ctx, url, store.CoverPath(name))
		if err == nil {
			hash = res.Hash
		}
		return err
	})
	if err != nil {
		return syncSkipped, err
	}

	u := library.CoverUpdate{URL: url, File: name, Hash: hash}
	if err := lib.UpdateCover(ctx, kind, v.ID, u, true); err != nil {
		return syncSkipped, err
	}
	return syncDownloaded, nil
}

func (e *Engine) runLyrics(ctx context.Context, job domain.Job, log *slog.Logger) domain.JobResult {
	if e.deps.Lyrics == nil {
		return domain.JobResult{Message: MsgUnavailable}
	}
	if job.Target == "" {
		return e.runLyricsScan(ctx, log)
	}
	if e.deps.Tracks == nil {
		return domain.JobResult{Message: MsgUnavailable}
	}

	e.setStatus("Fetching lyrics for CD...")
	tl, err := e.deps.Tracks.LoadTrackList(ctx, job.Target)
	if err != nil {
		log.Warn("no track list for release", slog.String("release", job.Target), slog.Any("error", err))
		return domain.JobResult{Message: MsgTrackListMissing}
	}

	total := len(tl.Tracks)
	fetched := 0
	for i, t := range tl.Tracks {
		if e.StopRequested() || ctx.Err() != nil {
			break
		}
		e.setProgress(i, total)
		e.setStatus("Lyrics: " + t.Title)

		res, err := e.deps.Lyrics.FetchLyrics(ctx, job.Target, i, job.Force)
		if err != nil {
			log.Debug("lyrics fetch failed", slog.Int("track", i), slog.Any("error", err))
		}
		switch res {
		case domain.LyricsFetchedNow, domain.LyricsAlreadyCached:
			fetched++
		}
		if res != domain.LyricsAlreadyCached {
			if e.pause(ctx, e.cfg.LyricsPacing) != nil {
				break
			}
		}
	}
	return domain.JobResult{Success: true, Message: fmt.Sprintf("Fetched %d/%d", fetched, total)}
}

// runLyricsScan probes the first few tracks of every disc with a release
// id.
func (e *Engine) runLyricsScan(ctx context.Context, log *slog.Logger) domain.JobResult {
	lib := e.deps.Library
	if lib == nil {
		return domain.JobResult{Message: MsgUnavailable}
	}
	e.setStatus("Lyrics: Full Scan")

	total, err := lib.Count(ctx, domain.KindDisc)
	if err != nil {
		log.Warn("lyrics scan could not read the library", slog.Any("error", err))
		return domain.JobResult{Message: MsgScanStopped}
	}

	probed := 0
	stopped := false
scan:
	for i := range total {
		if e.StopRequested() || ctx.Err() != nil {
			stopped = true
			break
		}
		e.setProgress(i, total)

		rec, err := lib.Hydrate(ctx, domain.KindDisc, i)
		if err != nil {
			log.Debug("lyrics scan skipped disc", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		v := rec.View()
		if v.ReleaseID == "" {
			continue
		}
		e.setStatus("Lyrics: " + v.Title)

		for t := range min(v.TrackCount, e.cfg.LyricsScanTrackCap) {
			if e.StopRequested() {
				stopped = true
				break scan
			}
			if _, err := e.deps.Lyrics.FetchLyrics(ctx, v.ReleaseID, t, false); err != nil {
				log.Debug("lyrics fetch failed", slog.String("release", v.ReleaseID), slog.Int("track", t), slog.Any("error", err))
			}
			probed++
			if e.pause(ctx, e.cfg.ScanPacing) != nil {
				stopped = true
				break scan
			}
		}
	}

	log.Info("lyrics scan finished", slog.Int("discs", total), slog.Int("tracks_probed", probed), slog.Bool("stopped", stopped))
	if stopped {
		return domain.JobResult{Message: MsgScanStopped}
	}
	return domain.JobResult{Success: true, Message: MsgScanComplete}
}
