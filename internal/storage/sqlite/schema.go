package sqlite

const schema = `
-- Scan sessions table
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    roots TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'complete', 'failed')),
    files_seen INTEGER NOT NULL DEFAULT 0,
    files_failed INTEGER NOT NULL DEFAULT 0,
    bytes_seen INTEGER NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME
);

-- File records table
-- Identity is (session_id, path); rows are never deleted except by purge
CREATE TABLE IF NOT EXISTS files (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    path TEXT NOT NULL,
    size INTEGER NOT NULL,
    mtime DATETIME NOT NULL,
    quick_hash TEXT NOT NULL DEFAULT '',
    full_hash TEXT NOT NULL DEFAULT '',
    canonical_path TEXT NOT NULL DEFAULT '',
    is_duplicate INTEGER NOT NULL DEFAULT 0,
    duplicate_of TEXT NOT NULL DEFAULT '',
    move_count INTEGER NOT NULL DEFAULT 0,
    error_flag INTEGER NOT NULL DEFAULT 0,
    UNIQUE (session_id, path),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_files_session ON files(session_id);
CREATE INDEX IF NOT EXISTS idx_files_quick_hash ON files(quick_hash);
CREATE INDEX IF NOT EXISTS idx_files_full_hash ON files(full_hash);
CREATE INDEX IF NOT EXISTS idx_files_size ON files(size);

-- Duplicate groups table
CREATE TABLE IF NOT EXISTS duplicate_groups (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    hash TEXT NOT NULL,
    canonical_file_id TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (session_id, hash),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
    FOREIGN KEY (canonical_file_id) REFERENCES files(id)
);

CREATE INDEX IF NOT EXISTS idx_duplicate_groups_session ON duplicate_groups(session_id);

-- Duplicate group membership table
CREATE TABLE IF NOT EXISTS duplicate_members (
    group_id TEXT NOT NULL,
    file_id TEXT NOT NULL,
    PRIMARY KEY (group_id, file_id),
    FOREIGN KEY (group_id) REFERENCES duplicate_groups(id) ON DELETE CASCADE,
    FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_duplicate_members_file ON duplicate_members(file_id);

-- Migration plans table
CREATE TABLE IF NOT EXISTS migration_plans (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN ('draft', 'staged', 'validated', 'committed', 'discarded')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_migration_plans_session ON migration_plans(session_id);

-- Migration actions table
CREATE TABLE IF NOT EXISTS migration_actions (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL,
    file_id TEXT NOT NULL,
    source_path TEXT NOT NULL,
    target_path TEXT NOT NULL DEFAULT '',
    action_type TEXT NOT NULL CHECK(action_type IN ('MOVE', 'QUARANTINE', 'ARCHIVE', 'SKIP')),
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'staged', 'validated', 'committed', 'failed')),
    confidence REAL NOT NULL DEFAULT 1.0,
    requires_review INTEGER NOT NULL DEFAULT 0,
    failure_reason TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (plan_id) REFERENCES migration_plans(id) ON DELETE CASCADE,
    FOREIGN KEY (file_id) REFERENCES files(id)
);

CREATE INDEX IF NOT EXISTS idx_migration_actions_plan ON migration_actions(plan_id);
CREATE INDEX IF NOT EXISTS idx_migration_actions_status ON migration_actions(status);

-- Staging actions table (materialized preview entries)
CREATE TABLE IF NOT EXISTS staging_actions (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL,
    action_id TEXT NOT NULL,
    staged_path TEXT NOT NULL,
    method TEXT NOT NULL CHECK(method IN ('SYMLINK', 'HARDLINK', 'COPY')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (plan_id) REFERENCES migration_plans(id) ON DELETE CASCADE,
    FOREIGN KEY (action_id) REFERENCES migration_actions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_staging_actions_plan ON staging_actions(plan_id);

-- Conflict resolutions table
CREATE TABLE IF NOT EXISTS conflict_resolutions (
    id TEXT PRIMARY KEY,
    action_id TEXT NOT NULL,
    conflict_type TEXT NOT NULL CHECK(conflict_type IN ('target_exists', 'duplicate_target')),
    strategy TEXT NOT NULL CHECK(strategy IN ('ASK', 'SKIP', 'RENAME', 'REPLACE', 'KEEP_NEWEST', 'KEEP_LARGEST')),
    resolved_path TEXT NOT NULL DEFAULT '',
    confirmed INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (action_id, conflict_type),
    FOREIGN KEY (action_id) REFERENCES migration_actions(id) ON DELETE CASCADE
);

-- Snapshots table (manifest lives on disk under store_root)
CREATE TABLE IF NOT EXISTS snapshots (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL DEFAULT '',
    store_root TEXT NOT NULL,
    file_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);

-- Rollback log table (append-only except the rolled_back flag)
CREATE TABLE IF NOT EXISTS rollback_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    plan_id TEXT NOT NULL,
    action_id TEXT NOT NULL,
    before_path TEXT NOT NULL,
    after_path TEXT NOT NULL,
    hash TEXT NOT NULL DEFAULT '',
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    rolled_back INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (plan_id) REFERENCES migration_plans(id),
    FOREIGN KEY (action_id) REFERENCES migration_actions(id)
);

CREATE INDEX IF NOT EXISTS idx_rollback_log_plan ON rollback_log(plan_id);

-- Config table for key/value settings
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
