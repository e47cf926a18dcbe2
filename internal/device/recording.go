package device

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/ppgview/internal/errors"
	"codeberg.org/mutker/ppgview/internal/logger"
	"codeberg.org/mutker/ppgview/internal/window"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDirPerm = 0o755
	fetchTimeout   = 200 * time.Millisecond
)

// Recording replays a PPG capture stored in SQLite at the pace it was
// recorded, so downstream code cannot tell it from a live board.
type Recording struct {
	Path     string
	RingSize int
	Clock    func() time.Time
	Logger   logger.Logger
}

func NewRecording(path string) *Recording {
	return &Recording{Path: path, RingSize: DefaultRingSize}
}

func (r *Recording) Open(ctx context.Context) (Session, error) {
	errFactory := errors.New()

	log := r.Logger
	if log == nil {
		log = logger.Default()
	}
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}

	if _, err := os.Stat(r.Path); err != nil {
		return nil, errFactory.Wrap(ErrConnection, err)
	}

	db, err := sql.Open("sqlite3", "file:"+r.Path+"?mode=ro")
	if err != nil {
		return nil, errFactory.Wrap(ErrConnection, errFactory.Wrap(ErrStorageInit, err))
	}

	sess := &recSession{db: db, clock: clock, log: log}

	version, err := schemaVersion(db)
	if err != nil {
		return sess, errFactory.Wrap(ErrConnection, err)
	}
	if version != SchemaVersion {
		return sess, errFactory.Wrap(ErrConnection, errFactory.WithData(ErrSchemaMismatch, struct {
			Want int
			Got  int
		}{SchemaVersion, version}))
	}

	var (
		name     string
		rate     int
		channels string
	)
	err = db.QueryRowContext(ctx, `SELECT name, sampling_rate, channels FROM recording WHERE id = 1`).
		Scan(&name, &rate, &channels)
	if err != nil {
		return sess, errFactory.Wrap(ErrConnection, errFactory.Wrap(ErrStorageAccess, err))
	}

	chans, err := parseChannels(channels)
	if err != nil {
		return sess, errFactory.Wrap(ErrConnection, err)
	}

	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(idx) + 1, 0) FROM samples`).Scan(&sess.frames); err != nil {
		return sess, errFactory.Wrap(ErrConnection, errFactory.Wrap(ErrStorageAccess, err))
	}

	ringSize := r.RingSize
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}

	sess.info = Info{
		ID:           uuid.NewString(),
		Name:         name,
		SamplingRate: rate,
		Channels:     chans,
	}
	sess.ring = newRing(len(chans), ringSize)
	sess.started = clock()
	sess.streaming = true

	log.Info().
		Str("session", sess.info.ID).
		Str("recording", r.Path).
		Int("sampling_rate", rate).
		Int64("frames", sess.frames).
		Msg("Playback started")

	return sess, nil
}

type recSession struct {
	mu        sync.Mutex
	db        *sql.DB
	info      Info
	ring      *ring
	frames    int64
	clock     func() time.Time
	started   time.Time
	streaming bool
	closed    bool
	log       logger.Logger
}

func (s *recSession) Info() Info {
	return s.info
}

func (s *recSession) Fetch(maxSamples int) (window.Snapshot, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.streaming {
		return window.Snapshot{}, errFactory.New(ErrSessionClosed)
	}
	if maxSamples <= 0 {
		return window.Snapshot{}, errFactory.WithData(errors.ErrInvalidArgument, maxSamples)
	}

	rate := float64(s.info.SamplingRate)
	due := min(int64(s.clock().Sub(s.started).Seconds()*rate), s.frames)
	if due > s.ring.total {
		from := max(s.ring.total, due-int64(s.ring.capacity))
		s.ring.skip(from - s.ring.total)
		if err := s.load(from, due); err != nil {
			return window.Snapshot{}, err
		}
	}

	return window.NewSnapshot(s.info.Channels, s.ring.latest(maxSamples), s.info.SamplingRate, s.ring.total)
}

// load pushes frames [from, to) into the ring.
func (s *recSession) load(from, to int64) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, selectSamplesSQL, from, to)
	if err != nil {
		return s.fetchError(ctx, err)
	}
	defer rows.Close()

	index := make(map[window.Channel]int, len(s.info.Channels))
	for i, ch := range s.info.Channels {
		index[ch] = i
	}

	frame := make([]float64, len(s.info.Channels))
	current := from
	filled := 0
	for rows.Next() {
		var (
			idx     int64
			channel int
			value   float64
		)
		if err := rows.Scan(&idx, &channel, &value); err != nil {
			return errFactory.Wrap(ErrFetchFailed, err)
		}
		if idx != current {
			return errFactory.WithData(ErrFetchFailed, struct {
				Want int64
				Got  int64
			}{current, idx})
		}
		i, ok := index[window.Channel(channel)]
		if !ok {
			return errFactory.WithData(ErrFetchFailed, struct {
				Frame   int64
				Channel int
			}{idx, channel})
		}
		frame[i] = value
		filled++
		if filled == len(frame) {
			s.ring.push(frame)
			current++
			filled = 0
		}
	}
	if err := rows.Err(); err != nil {
		return s.fetchError(ctx, err)
	}
	if current != to {
		return errFactory.WithData(ErrFetchFailed, struct {
			Phase string
			Want  int64
			Got   int64
		}{"incomplete_frames", to, current})
	}

	return nil
}

func (s *recSession) fetchError(ctx context.Context, err error) error {
	errFactory := errors.New()
	if ctx.Err() != nil {
		return errFactory.Wrap(ErrFetchFailed, errFactory.Wrap(errors.ErrTimeout, err))
	}
	return errFactory.Wrap(ErrFetchFailed, err)
}

func (s *recSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.streaming = false
	if s.ring != nil {
		s.ring.clear()
	}

	if err := s.db.Close(); err != nil {
		return errors.New().WithData(errors.ErrReleaseSession, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	s.log.Info().Str("session", s.info.ID).Msg("Releasing session")

	return nil
}

// CreateRecording writes frames (frames[i][c] is channel c of frame i) as a
// new capture at path.
func CreateRecording(path string, name string, samplingRate int, channels []window.Channel, frames [][]float64) error {
	errFactory := errors.New()
	log := logger.Default()

	if samplingRate <= 0 || len(channels) == 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			SamplingRate int
			Channels     int
		}{samplingRate, len(channels)})
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  path,
			Error: err.Error(),
		})
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errFactory.Wrap(ErrStorageInit, err)
	}
	defer db.Close()

	if err := initSchema(db, log); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to roll back transaction")
			}
		}
	}()

	if _, err := tx.Exec(`INSERT INTO recording (id, name, sampling_rate, channels) VALUES (1, ?, ?, ?)`,
		name, samplingRate, formatChannels(channels)); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for i, frame := range frames {
		if len(frame) != len(channels) {
			return errFactory.WithData(window.ErrChannelMismatch, struct {
				Frame int
				Want  int
				Got   int
			}{i, len(channels), len(frame)})
		}
		for c, v := range frame {
			if _, err := stmt.Exec(int64(i), int(channels[c]), v); err != nil {
				return errFactory.Wrap(ErrTransactionFailed, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	committed = true

	log.Debug().Int("frames", len(frames)).Str("path", path).Msg("Recording written")

	return nil
}

func formatChannels(channels []window.Channel) string {
	parts := make([]string, len(channels))
	for i, ch := range channels {
		parts[i] = strconv.Itoa(int(ch))
	}
	return strings.Join(parts, ",")
}

func parseChannels(s string) ([]window.Channel, error) {
	fields := strings.Split(s, ",")
	out := make([]window.Channel, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 0 || n > 255 {
			return nil, errors.New().WithData(ErrSchemaMismatch, struct {
				Field string
				Value string
			}{"channels", s})
		}
		out = append(out, window.Channel(n))
	}
	return out, nil
}
