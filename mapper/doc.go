// Package mapper loads statement definitions from YAML mapper files.
//
// A mapper file declares one namespace, an optional cache block and the
// namespace's statements:
//
//	namespace: users
//	cache:
//	  backend: lru
//	  capacity: 1000
//	  ttl: 5m
//	statements:
//	  - id: selectByID
//	    kind: select
//	    sql: SELECT id, name FROM users WHERE id = #{id}
//	  - id: rename
//	    kind: update
//	    sql: UPDATE users SET name = #{name} WHERE id = #{id}
//
// Statements are registered as "namespace.id". Selects use the cache and
// writes flush it unless useCache or flushCache say otherwise.
package mapper
