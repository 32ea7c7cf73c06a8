/*
Package ports defines the driven ports (interfaces) of the intake engine.

These interfaces decouple the wizard runtime from external implementations, allowing
answers to live in memory, on disk, in Redis or in SQLite without the engine noticing.

# Key Interfaces

  - RecordStore: persists and loads the durable answer record of a device.
  - AttachmentStore: holds recorded/uploaded audio in memory until submission.
  - DistributedLocker: provides distributed locking for concurrent access across replicas.
*/
package ports
