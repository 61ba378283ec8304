package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Schema creates the documents and sequence_counters tables. The
// counters live in the same store as the documents so the backfill
// statement below can derive floors from history.
const Schema = `
create table if not exists documents (
	id                      uuid primary key,
	kind                    varchar(2) not null,
	sequence                varchar(9) not null,
	access_key              varchar(49),
	emission_date           timestamptz not null,
	buyer                   jsonb not null,
	lines                   jsonb not null,
	tax_rate                numeric(6,4) not null,
	total_without_tax       numeric(14,2) not null default 0,
	total_tax               numeric(14,2) not null default 0,
	grand_total             numeric(14,2) not null default 0,
	status                  varchar(20) not null,
	authorization_number    varchar(49),
	authorization_timestamp timestamptz,
	messages                jsonb,
	voided                  boolean not null default false,
	modified_access_key     varchar(49),
	modified_sequence       varchar(9),
	modified_emission_date  timestamptz,
	reason                  varchar(2),
	created_at              timestamptz not null,
	updated_at              timestamptz not null
);
create unique index if not exists documents_access_key_idx
	on documents(access_key) where access_key is not null;
create unique index if not exists documents_kind_sequence_idx
	on documents(kind, sequence);

create table if not exists sequence_counters (
	kind  varchar(2) primary key,
	value bigint not null default 0
);
`

// BackfillCounters raises each counter to the highest sequence seen
// in historical documents. Run once when adopting existing records.
const BackfillCounters = `
insert into sequence_counters(kind, value)
select kind, max(sequence::bigint) from documents group by kind
on conflict (kind) do update
set value = greatest(sequence_counters.value, excluded.value)
`

// Open opens a pgx-backed database handle with pool defaults shared
// by the document store and the sequence allocator.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// EnsureSchema creates tables and indexes if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
