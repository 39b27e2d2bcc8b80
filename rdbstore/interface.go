// Package rdbstore implements storage components that keep data
// in a RocksDB database, rather than in memory datastructures.
//
// These implementations are substantially slower than the corresponding in-memory
// components but can scale to sample sets and games that do not fit in memory.
package rdbstore

import (
	rocksdb "github.com/tecbot/gorocksdb"
)

type Params struct {
	Path         string
	Options      *rocksdb.Options
	ReadOptions  *rocksdb.ReadOptions
	WriteOptions *rocksdb.WriteOptions
}

func DefaultParams(path string) Params {
	opts := rocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	return Params{
		Path:         path,
		Options:      opts,
		ReadOptions:  rocksdb.NewDefaultReadOptions(),
		WriteOptions: rocksdb.NewDefaultWriteOptions(),
	}
}

func (p Params) Close() {
	p.Options.Destroy()
	p.ReadOptions.Destroy()
	p.WriteOptions.Destroy()
}

func (p Params) open() (*rocksdb.DB, error) {
	return rocksdb.OpenDb(p.Options, p.Path)
}

// prefixKeys calls fn with a copy of each key that starts with prefix
// and the value stored under it, in key order.
func prefixKeys(db *rocksdb.DB, ro *rocksdb.ReadOptions, prefix []byte, fn func(key, value []byte) error) error {
	it := db.NewIterator(ro)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := append([]byte(nil), it.Key().Data()...)
		if err := fn(key, it.Value().Data()); err != nil {
			return err
		}
	}

	return it.Err()
}
