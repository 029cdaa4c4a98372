package fs

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"sync/atomic"

	"github.com/sharedcode/graphkv"
	"github.com/sharedcode/graphkv/fs/erasure"
)

func init() {
	graphkv.RegisterStoreFactory(graphkv.FileSystem, func(opts graphkv.Options) (graphkv.Store, error) {
		if opts.FileSystem == nil {
			return nil, fmt.Errorf("file system store requires a file_system config section")
		}
		if opts.FileSystem.ErasureConfig != nil {
			return NewStoreWithEC(*opts.FileSystem.ErasureConfig, nil)
		}
		return NewStore(opts.FileSystem.BaseFolder, nil)
	})
}

const (
	maxThreadCount = 7
)

// Store keeps each storage key's marshaled value in its own file. With erasure coding on, the value
// is split into data and parity shards, one file per shard, each under a different base folder
// (typically on different drives). Reads tolerate up to parity count missing or damaged shards.
type Store struct {
	fileIO     FileIO
	toFilePath ToFilePathFunc

	baseFolder string

	coder                       *erasure.Coder
	baseFolderPathsAcrossDrives []string
	repairCorruptedShards       bool
}

// NewStore returns a Store writing under baseFolder. A nil fileIO means the os backed default.
func NewStore(baseFolder string, fileIO FileIO) (*Store, error) {
	if baseFolder == "" {
		return nil, fmt.Errorf("baseFolder parameter can't be empty")
	}
	if fileIO == nil {
		fileIO = NewFileIO()
	}
	return &Store{
		fileIO:     fileIO,
		toFilePath: DefaultToFilePath,
		baseFolder: baseFolder,
	}, nil
}

// NewStoreWithEC returns a Store erasure coding values across the configured folders.
// The number of folders must equal data plus parity shard count.
func NewStoreWithEC(config graphkv.ErasureCodingConfig, fileIO FileIO) (*Store, error) {
	ec, err := erasure.NewCoder(config.DataShardsCount, config.ParityShardsCount)
	if err != nil {
		return nil, err
	}
	if ec.ShardsCount() != len(config.BaseFolderPathsAcrossDrives) {
		return nil, fmt.Errorf("baseFolderPaths array elements count should match the sum of dataShardsCount & parityShardsCount")
	}
	if fileIO == nil {
		fileIO = NewFileIO()
	}
	return &Store{
		fileIO:                      fileIO,
		toFilePath:                  DefaultToFilePath,
		coder:                       ec,
		baseFolderPathsAcrossDrives: config.BaseFolderPathsAcrossDrives,
		repairCorruptedShards:       config.RepairCorruptedShards,
	}, nil
}

// MultiGet reads the files of keys concurrently. Keys without a file are left out of the result,
// files that could not be read or decoded are reported as graphkv.KeyFailures.
func (s *Store) MultiGet(ctx context.Context, keys []string) ([]graphkv.Item, error) {
	found := make([]bool, len(keys))
	values := make([]any, len(keys))
	errs := make([]error, len(keys))

	tr := graphkv.NewTaskRunner(ctx, maxThreadCount)
	for i := range keys {
		tr.Go(func() error {
			ba, ok, err := s.read(tr.GetContext(), keys[i])
			if err != nil || !ok {
				errs[i] = err
				return nil
			}
			values[i], errs[i] = graphkv.UnmarshalValue(graphkv.DefaultMarshaler, ba)
			found[i] = errs[i] == nil
			return nil
		})
	}
	tr.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := make([]graphkv.Item, 0, len(keys))
	var failures graphkv.KeyFailures
	for i := range keys {
		if errs[i] != nil {
			failures = append(failures, graphkv.KeyFailure{Key: keys[i], Err: errs[i]})
			continue
		}
		if found[i] {
			r = append(r, graphkv.Item{Key: keys[i], Value: values[i]})
		}
	}
	if len(failures) > 0 {
		return r, failures
	}
	return r, nil
}

// MultiSet writes every item concurrently, replacing existing files.
func (s *Store) MultiSet(ctx context.Context, items []graphkv.Item) error {
	errs := make([]error, len(items))

	tr := graphkv.NewTaskRunner(ctx, maxThreadCount)
	for i := range items {
		tr.Go(func() error {
			ba, err := graphkv.DefaultMarshaler.Marshal(items[i].Value)
			if err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = s.write(tr.GetContext(), items[i].Key, ba)
			return nil
		})
	}
	tr.Wait()

	var failures graphkv.KeyFailures
	for i, err := range errs {
		if err != nil {
			failures = append(failures, graphkv.KeyFailure{Key: items[i].Key, Err: err})
		}
	}
	if len(failures) > 0 {
		return failures
	}
	return nil
}

// Delete removes the files (or shard files) of keys. Missing files are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	tr := graphkv.NewTaskRunner(ctx, maxThreadCount)
	for _, key := range keys {
		for _, fn := range s.filePaths(key) {
			tr.Go(func() error {
				return s.fileIO.Remove(ctx, fn)
			})
		}
	}
	return tr.Wait()
}

// RemoveAll deletes the base folder(s) and all of their contents.
func (s *Store) RemoveAll(ctx context.Context) error {
	folders := s.baseFolderPathsAcrossDrives
	if s.coder == nil {
		folders = []string{s.baseFolder}
	}
	var lastErr error
	for _, folderPath := range folders {
		if err := s.fileIO.RemoveAll(ctx, folderPath); err != nil {
			// Attempt all folders not to leak storage, report the last error.
			lastErr = err
		}
	}
	return lastErr
}

// filePaths returns the file, or one file per shard, holding key's value.
func (s *Store) filePaths(key string) []string {
	if s.coder == nil {
		return []string{s.toFilePath(s.baseFolder, key)}
	}
	r := make([]string, len(s.baseFolderPathsAcrossDrives))
	for i := range s.baseFolderPathsAcrossDrives {
		r[i] = fmt.Sprintf("%s_%d", s.toFilePath(s.baseFolderPathsAcrossDrives[i], key), i)
	}
	return r
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool, error) {
	fns := s.filePaths(key)
	if s.coder == nil {
		ba, err := s.fileIO.ReadFile(ctx, fns[0])
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return ba, err == nil, err
	}

	framed := make([][]byte, len(fns))
	var notFound atomic.Int32
	tr := graphkv.NewTaskRunner(ctx, -1)
	for i := range fns {
		tr.Go(func() error {
			log.Debug(fmt.Sprintf("reading from file %s", fns[i]))
			ba, err := s.fileIO.ReadFile(ctx, fns[i])
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					notFound.Add(1)
				} else {
					log.Warn(fmt.Sprintf("failed reading from file %s, error: %v", fns[i], err))
				}
				return nil
			}
			framed[i] = ba
			return nil
		})
	}
	tr.Wait()
	if int(notFound.Load()) == len(fns) {
		return nil, false, nil
	}

	dr, err := s.coder.Decode(framed)
	if err != nil {
		return nil, false, err
	}
	if s.repairCorruptedShards && len(dr.ReconstructedShardsIndices) > 0 {
		s.repair(ctx, fns, dr)
	}
	return dr.Data, true, nil
}

// repair rewrites damaged shards sequentially, typically a single drive failed.
func (s *Store) repair(ctx context.Context, fns []string, dr *erasure.DecodeResult) {
	shards, err := s.coder.Encode(dr.Data)
	if err != nil {
		log.Warn(fmt.Sprintf("can't re-encode data for shard repair, error: %v", err))
		return
	}
	for _, i := range dr.ReconstructedShardsIndices {
		log.Debug(fmt.Sprintf("repairing file %s", fns[i]))
		if err := s.fileIO.WriteFile(ctx, fns[i], shards[i], filePermission); err != nil {
			log.Warn(fmt.Sprintf("error encountered repairing a damaged shard (%s), details: %v", fns[i], err))
		}
	}
}

func (s *Store) write(ctx context.Context, key string, ba []byte) error {
	fns := s.filePaths(key)
	if s.coder == nil {
		log.Debug(fmt.Sprintf("writing to file %s", fns[0]))
		return s.fileIO.WriteFile(ctx, fns[0], ba, filePermission)
	}

	shards, err := s.coder.Encode(ba)
	if err != nil {
		return err
	}
	var failed atomic.Int32
	var lastErr atomic.Pointer[error]
	tr := graphkv.NewTaskRunner(ctx, -1)
	for i := range shards {
		tr.Go(func() error {
			log.Debug(fmt.Sprintf("writing to file %s", fns[i]))
			if err := s.fileIO.WriteFile(ctx, fns[i], shards[i], filePermission); err != nil {
				failed.Add(1)
				lastErr.Store(&err)
			}
			// Shard write failures are tolerated up to the parity count.
			return nil
		})
	}
	tr.Wait()
	if int(failed.Load()) > s.coder.ParityShardsCount {
		return *lastErr.Load()
	}
	if e := lastErr.Load(); e != nil {
		log.Warn(fmt.Sprintf("error writing to a drive but EC tolerates it, details: %v", *e))
	}
	return nil
}
