package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const userCollection = "user"

// userRecord is the internal DB representation of a user's delivery tokens.
// A record holds EITHER a single token OR an ordered token array, depending
// on how many devices the user has registered.
type userRecord struct {
	FCMToken  string   `firestore:"fcmToken,omitempty"`
	FCMTokens []string `firestore:"fcmTokens,omitempty"`
}

func (r *userRecord) tokens() []string {
	if len(r.FCMTokens) > 0 {
		out := make([]string, 0, len(r.FCMTokens))
		for _, t := range r.FCMTokens {
			if t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	if r.FCMToken != "" {
		return []string{r.FCMToken}
	}
	return nil
}

// UserStore reads user delivery tokens and reconciles dead ones.
type UserStore struct {
	client *firestore.Client
}

func NewUserStore(client *firestore.Client) *UserStore {
	return &UserStore{client: client}
}

// Tokens returns a user's registered tokens in stored order. Missing or
// tokenless users contribute nothing.
func (s *UserStore) Tokens(ctx context.Context, userID string) ([]string, error) {
	snap, err := s.userRef(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("user %s read failed: %w", userID, err)
	}

	var record userRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("user %s decode failed: %w", userID, err)
	}
	return record.tokens(), nil
}

// RemoveDeadTokens strips the dead tokens from each listed user record inside
// one transaction. Every record is re-read at commit time rather than trusting
// the snapshot taken during audience resolution, so concurrent token
// registrations by the user's own device are never overwritten. Only records
// that actually change are written back, which makes a second pass with the
// same dead set a no-op.
func (s *UserStore) RemoveDeadTokens(ctx context.Context, userIDs []string, dead []string) (int, error) {
	if len(dead) == 0 || len(userIDs) == 0 {
		return 0, nil
	}
	deadSet := make(map[string]struct{}, len(dead))
	for _, t := range dead {
		deadSet[t] = struct{}{}
	}

	removed := 0
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		removed = 0

		// All reads must precede writes within a Firestore transaction.
		type pending struct {
			ref     *firestore.DocumentRef
			updates []firestore.Update
		}
		var writes []pending

		for _, uid := range userIDs {
			ref := s.userRef(uid)
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					continue
				}
				return err
			}
			var record userRecord
			if err := snap.DataTo(&record); err != nil {
				continue
			}

			var updates []firestore.Update
			if len(record.FCMTokens) > 0 {
				filtered := make([]string, 0, len(record.FCMTokens))
				for _, t := range record.FCMTokens {
					if _, isDead := deadSet[t]; isDead {
						removed++
						continue
					}
					filtered = append(filtered, t)
				}
				if len(filtered) != len(record.FCMTokens) {
					updates = append(updates, firestore.Update{Path: "fcmTokens", Value: filtered})
				}
			}
			if record.FCMToken != "" {
				if _, isDead := deadSet[record.FCMToken]; isDead {
					removed++
					updates = append(updates, firestore.Update{Path: "fcmToken", Value: firestore.Delete})
				}
			}
			if len(updates) > 0 {
				writes = append(writes, pending{ref: ref, updates: updates})
			}
		}

		for _, w := range writes {
			if err := tx.Update(w.ref, w.updates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("dead token cleanup failed: %w", err)
	}
	return removed, nil
}

func (s *UserStore) userRef(userID string) *firestore.DocumentRef {
	return s.client.Collection(userCollection).Doc(userID)
}
