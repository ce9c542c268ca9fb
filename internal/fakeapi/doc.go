// Package fakeapi is an in-memory implementation of the household REST API
// used by end-to-end tests and by cmd/fakehouse for local development.
//
// The dataset is seeded with one household (SeedHouseholdID), two members,
// two todo lists, a shopping list with items and categories, an event and
// two announcements. Handlers follow the backend's contract: reorder answers
// 204, completion takes {"completed": bool}, toggle flips purchased, invalid
// payloads answer 400 with {"error": ...}.
//
// Tests steer failures with FailNext, stall requests with Hold and check
// traffic with Count. All three match on the path below Prefix, for example
// "/todos/12/completed".
package fakeapi
