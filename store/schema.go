package store

// Identity and observation tables. Timestamps are TEXT in sqlite, written
// in a fixed-width UTC layout so they sort lexically.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS drive_identity (
    owner_host    TEXT    NOT NULL,
    device_name   TEXT    NOT NULL,
    generation    INTEGER NOT NULL CHECK (generation >= 1),
    identity_data TEXT    NOT NULL,
    observed_at   TEXT    NOT NULL,
    PRIMARY KEY (owner_host, device_name, generation)
);

CREATE TABLE IF NOT EXISTS drive_observation (
    owner_host     TEXT    NOT NULL,
    device_name    TEXT    NOT NULL,
    generation     INTEGER NOT NULL,
    observed_at    TEXT    NOT NULL,
    brief_summary  TEXT    NOT NULL,
    detail_summary TEXT    NOT NULL,
    PRIMARY KEY (owner_host, device_name, generation, observed_at)
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS drive_identity (
    owner_host    VARCHAR(255) NOT NULL,
    device_name   VARCHAR(255) NOT NULL,
    generation    INTEGER      NOT NULL CHECK (generation >= 1),
    identity_data TEXT         NOT NULL,
    observed_at   TIMESTAMPTZ  NOT NULL,
    PRIMARY KEY (owner_host, device_name, generation)
);

CREATE TABLE IF NOT EXISTS drive_observation (
    owner_host     VARCHAR(255) NOT NULL,
    device_name    VARCHAR(255) NOT NULL,
    generation     INTEGER      NOT NULL,
    observed_at    TIMESTAMPTZ  NOT NULL,
    brief_summary  TEXT         NOT NULL,
    detail_summary TEXT         NOT NULL,
    PRIMARY KEY (owner_host, device_name, generation, observed_at)
);
`
