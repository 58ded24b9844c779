package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- SYNC_JOB TABLE
    -- ==========================================================================
    -- Single live row at sync_job:current; finished jobs are copied into
    -- sync_job_history before a new one is installed.
    DEFINE TABLE IF NOT EXISTS sync_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS status ON sync_job TYPE string
        ASSERT $value IN ["idle", "scheduled", "running", "completed", "canceled", "failed"];
    DEFINE FIELD IF NOT EXISTS mode ON sync_job TYPE string
        ASSERT $value IN ["direct", "cron"];
    DEFINE FIELD IF NOT EXISTS collection_id ON sync_job TYPE string;
    DEFINE FIELD IF NOT EXISTS items ON sync_job TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS total ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS processed ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS errors ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS percent ON sync_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cancel_requested ON sync_job TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS error_message ON sync_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON sync_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS last_update ON sync_job TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- SYNC_JOB_HISTORY TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS sync_job_history SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS status ON sync_job_history TYPE string;
    DEFINE FIELD IF NOT EXISTS mode ON sync_job_history TYPE string;
    DEFINE FIELD IF NOT EXISTS collection_id ON sync_job_history TYPE string;
    DEFINE FIELD IF NOT EXISTS total ON sync_job_history TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS processed ON sync_job_history TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS errors ON sync_job_history TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS error_message ON sync_job_history TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON sync_job_history TYPE datetime;
    DEFINE FIELD IF NOT EXISTS finished_at ON sync_job_history TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS sync_job_history_finished ON sync_job_history FIELDS finished_at;

    -- ==========================================================================
    -- TRAINING_RECORD TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS training_record SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS collection_id ON training_record TYPE string;
    DEFINE FIELD IF NOT EXISTS item_id ON training_record TYPE string;
    DEFINE FIELD IF NOT EXISTS remote_store_id ON training_record TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS remote_file_id ON training_record TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS content_hash ON training_record TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS status ON training_record TYPE string
        ASSERT $value IN ["adding", "updating", "synced", "error"];
    DEFINE FIELD IF NOT EXISTS error_code ON training_record TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error_message ON training_record TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS last_synced ON training_record TYPE datetime DEFAULT time::now();

    -- One record per (collection, item) pair
    DEFINE INDEX IF NOT EXISTS training_record_item ON training_record FIELDS collection_id, item_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS training_record_status ON training_record FIELDS status;
`
