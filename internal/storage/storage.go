package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"exoplanet-ai/internal/common"

	"go.etcd.io/bbolt"
)

const (
	historyBucket  = "history"   // ts_id -> SearchRecord
	searchIDBucket = "search_id" // id -> history key
	ownerBucket    = "owner"     // len(user) user ts_id -> history key
	usersBucket    = "users"     // id -> User
	emailsBucket   = "emails"    // email -> id
	sessionsBucket = "sessions"  // token -> Session
	settingsBucket = "settings"  // user id -> Settings
	feedbackBucket = "feedback"  // ts_id -> Feedback

	dbFile = "exoplanet-ai.db"
)

var buckets = []string{
	historyBucket, searchIDBucket, ownerBucket, usersBucket,
	emailsBucket, sessionsBucket, settingsBucket, feedbackBucket,
}

// BoltStore persists every record type in a single BoltDB file. bbolt
// allows one writer at a time, which serializes history appends.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltStore opens (or creates) the database under dataPath and makes sure
// all buckets exist.
func NewBoltStore(dataPath string) (*BoltStore, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the database connection gracefully.
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// timeKey sorts lexically in time order.
func timeKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", ts.UnixNano(), id))
}

// ownerPrefix leads with the id length, so no owner's keys fall inside
// another owner's prefix range whatever bytes the id holds.
func ownerPrefix(userID string) []byte {
	prefix := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(userID)), uint64(len(userID)))
	return append(prefix, userID...)
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return b.Put(key, data)
}

func getJSON(b *bbolt.Bucket, key []byte, v any) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// lastN walks a bucket backwards from the end, or from the last key with
// prefix, and returns up to limit values oldest first.
func lastN(c *bbolt.Cursor, prefix []byte, limit int) [][]byte {
	var k, v []byte
	if len(prefix) == 0 {
		k, v = c.Last()
	} else {
		// seek just past the prefix range, then step back
		end := append(append([]byte{}, prefix...), 0xff)
		k, v = c.Seek(end)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
	}

	var out [][]byte
	for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (s *BoltStore) AppendSearch(rec SearchRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		ids := tx.Bucket([]byte(searchIDBucket))
		if ids.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("search %s: %w", rec.ID, common.ErrConflict)
		}

		key := timeKey(rec.Timestamp, rec.ID)
		if err := putJSON(tx.Bucket([]byte(historyBucket)), key, rec); err != nil {
			return err
		}
		if err := ids.Put([]byte(rec.ID), key); err != nil {
			return err
		}
		if rec.UserID != "" {
			ownerKey := append(ownerPrefix(rec.UserID), key...)
			if err := tx.Bucket([]byte(ownerBucket)).Put(ownerKey, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetSearch(id string) (SearchRecord, error) {
	var rec SearchRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(searchIDBucket)).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("search %s: %w", id, common.ErrNotFound)
		}
		found, err := getJSON(tx.Bucket([]byte(historyBucket)), key, &rec)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("search %s: %w", id, common.ErrNotFound)
		}
		return nil
	})
	return rec, err
}

func (s *BoltStore) RecentSearches(limit int) ([]SearchRecord, error) {
	var records []SearchRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		for _, v := range lastN(tx.Bucket([]byte(historyBucket)).Cursor(), nil, limit) {
			var rec SearchRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

func (s *BoltStore) SearchesByOwner(userID string, limit int) ([]SearchRecord, error) {
	var records []SearchRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		history := tx.Bucket([]byte(historyBucket))
		prefix := ownerPrefix(userID)
		for _, key := range lastN(tx.Bucket([]byte(ownerBucket)).Cursor(), prefix, limit) {
			var rec SearchRecord
			if found, err := getJSON(history, key, &rec); err != nil || !found {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

func (s *BoltStore) CountSearches() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(historyBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) CreateUser(u User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket([]byte(emailsBucket))
		users := tx.Bucket([]byte(usersBucket))
		if emails.Get([]byte(u.Email)) != nil {
			return fmt.Errorf("email %s: %w", u.Email, common.ErrConflict)
		}
		if users.Get([]byte(u.ID)) != nil {
			return fmt.Errorf("user %s: %w", u.ID, common.ErrConflict)
		}
		if err := putJSON(users, []byte(u.ID), u); err != nil {
			return err
		}
		return emails.Put([]byte(u.Email), []byte(u.ID))
	})
}

func (s *BoltStore) UserByEmail(email string) (User, error) {
	var u User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(emailsBucket)).Get([]byte(email))
		if id == nil {
			return fmt.Errorf("email %s: %w", email, common.ErrNotFound)
		}
		found, err := getJSON(tx.Bucket([]byte(usersBucket)), id, &u)
		if err == nil && !found {
			err = fmt.Errorf("email %s: %w", email, common.ErrNotFound)
		}
		return err
	})
	return u, err
}

func (s *BoltStore) UserByID(id string) (User, error) {
	var u User
	err := s.db.View(func(tx *bbolt.Tx) error {
		found, err := getJSON(tx.Bucket([]byte(usersBucket)), []byte(id), &u)
		if err == nil && !found {
			err = fmt.Errorf("user %s: %w", id, common.ErrNotFound)
		}
		return err
	})
	return u, err
}

func (s *BoltStore) IncrementSearchCount(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(usersBucket))
		var u User
		found, err := getJSON(b, []byte(id), &u)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("user %s: %w", id, common.ErrNotFound)
		}
		u.SearchCount++
		return putJSON(b, []byte(id), u)
	})
}

func (s *BoltStore) CreateSession(sess Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket([]byte(sessionsBucket)), []byte(sess.Token), sess)
	})
}

func (s *BoltStore) GetSession(token string) (Session, error) {
	var sess Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		found, err := getJSON(tx.Bucket([]byte(sessionsBucket)), []byte(token), &sess)
		if err == nil && !found {
			err = fmt.Errorf("session: %w", common.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(s.now()) {
		_ = s.DeleteSession(token)
		return Session{}, fmt.Errorf("session expired: %w", common.ErrNotFound)
	}
	return sess, nil
}

func (s *BoltStore) DeleteSession(token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Delete([]byte(token))
	})
}

func (s *BoltStore) PutSettings(st Settings) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket([]byte(settingsBucket)), []byte(st.UserID), st)
	})
}

func (s *BoltStore) GetSettings(userID string) (Settings, error) {
	var st Settings
	err := s.db.View(func(tx *bbolt.Tx) error {
		found, err := getJSON(tx.Bucket([]byte(settingsBucket)), []byte(userID), &st)
		if err == nil && !found {
			err = fmt.Errorf("settings %s: %w", userID, common.ErrNotFound)
		}
		return err
	})
	return st, err
}

func (s *BoltStore) AddFeedback(f Feedback) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket([]byte(feedbackBucket)), timeKey(f.Timestamp, f.ID), f)
	})
}

func (s *BoltStore) FeedbackStats(n int) (int, []Feedback, error) {
	var (
		total  int
		latest []Feedback
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(feedbackBucket))
		total = b.Stats().KeyN
		for _, v := range lastN(b.Cursor(), nil, n) {
			var f Feedback
			if err := json.Unmarshal(v, &f); err != nil {
				continue
			}
			latest = append(latest, f)
		}
		return nil
	})
	return total, latest, err
}
