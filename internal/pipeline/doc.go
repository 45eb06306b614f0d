// Package pipeline runs one dump from resolution to the published file.
//
// A dump moves through the stages
//
//	resolving → listing → downloading → remuxing → publishing → done
//
// and ends in failed when any stage errors. Until publishing, a failure
// leaves target/<title>/ with its segments and ledger in place, so running
// the same dump again resumes it. Publishing renames the remuxed artifact to
// target/<title>.mp4 and removes the dump directory.
package pipeline
