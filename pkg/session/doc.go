/*
Package session serializes access to answer records.

Every read-modify-write of a device's record goes through Manager.WithLock, so
concurrent requests from the same device never lose each other's answers. An
optional DistributedLocker extends the guarantee across replicas sharing one
backend.
*/
package session
