// Package session is the entry point for running named statements with the
// transactional second-level cache.
//
//	factory := session.NewFactory(db, registry, session.WithEnvironment("prod"))
//	s := factory.Open()
//	defer s.Close(ctx)
//
//	user, err := s.SelectOne(ctx, "users.selectByID", map[string]any{"id": 7})
//	...
//	err = s.Commit(ctx, false)
//
// Results read inside a session become visible to other sessions only after
// Commit. A write statement hides its namespace cache from the session until
// commit, when the namespace is cleared for everyone.
package session
