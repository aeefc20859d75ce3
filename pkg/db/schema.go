package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Folders group links; deleting a folder deletes its links.
CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- Links: one stored URL with the metadata triple resolved for it.
-- image_url holds either the extracted image or the favicon proxy URL.
CREATE TABLE IF NOT EXISTS links (
    id TEXT PRIMARY KEY,
    folder_id TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    note TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_links_folder_created ON links(folder_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_links_url ON links(url);
`
