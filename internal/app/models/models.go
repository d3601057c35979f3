// Package models contains the entity types shared by the repositories and
// services: the template catalog, per-student assignments with item progress,
// the offline operation log and the instructor account.
package models
