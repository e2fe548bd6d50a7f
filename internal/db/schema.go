package db

const schema = `
CREATE TABLE IF NOT EXISTS themes (
    id                  TEXT PRIMARY KEY,
    title               TEXT NOT NULL,
    quarter             TEXT NOT NULL,
    category            TEXT NOT NULL CHECK(category IN ('eu_ets','routes','geopolitical','carrier','regional','general')),
    guidance            TEXT DEFAULT '',
    content             TEXT DEFAULT '',
    status              TEXT DEFAULT 'pending' CHECK(status IN ('pending','researching','validating','completed','failed')),
    overall_confidence  REAL CHECK(overall_confidence IS NULL OR (overall_confidence >= 0 AND overall_confidence <= 1)),
    created_at          DATETIME DEFAULT (datetime('now')),
    updated_at          DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_themes_quarter ON themes(quarter);
CREATE INDEX IF NOT EXISTS idx_themes_status ON themes(status);

CREATE TABLE IF NOT EXISTS claims (
    id                   TEXT PRIMARY KEY,
    theme_id             TEXT NOT NULL REFERENCES themes(id) ON DELETE CASCADE,
    claim_text           TEXT NOT NULL,
    claim_type           TEXT NOT NULL CHECK(claim_type IN ('vessel_movement','route_pattern','port_frequency','transit_time','fuel_consumption','manual')),
    metadata             TEXT DEFAULT '{}',
    vessel_filter        TEXT DEFAULT '',
    route_filter         TEXT DEFAULT '',
    period_filter        TEXT DEFAULT '',
    validation_query     TEXT NOT NULL,
    validation_logic     TEXT NOT NULL,
    confidence_score     REAL CHECK(confidence_score IS NULL OR (confidence_score >= 0 AND confidence_score <= 1)),
    supports_claim       INTEGER CHECK(supports_claim IN (0, 1) OR supports_claim IS NULL),
    data_points_found    INTEGER DEFAULT 0 CHECK(data_points_found >= 0),
    analysis_text        TEXT,
    last_error           TEXT,
    validation_timestamp DATETIME,
    created_at           DATETIME DEFAULT (datetime('now')),
    updated_at           DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_claims_theme ON claims(theme_id);
CREATE INDEX IF NOT EXISTS idx_claims_pending ON claims(theme_id) WHERE confidence_score IS NULL;
CREATE INDEX IF NOT EXISTS idx_claims_type ON claims(claim_type);
`
