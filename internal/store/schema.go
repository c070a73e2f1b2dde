package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	graph_id     TEXT NOT NULL,
	graph_name   TEXT,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	last_update  TEXT NOT NULL,
	ended        TEXT,
	error        TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_graph ON sessions(user_id, graph_id);

CREATE TABLE IF NOT EXISTS endpoints (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_endpoint_id TEXT NOT NULL,
	session_id       TEXT NOT NULL REFERENCES sessions(session_id),
	name             TEXT,
	type             TEXT NOT NULL,
	status           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_endpoints_session ON endpoints(session_id, graph_endpoint_id);

CREATE TABLE IF NOT EXISTS ports (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_port_id    TEXT,
	session_id       TEXT NOT NULL REFERENCES sessions(session_id),
	switch_id        TEXT,
	vlan_id          INTEGER,
	ipv4_address     TEXT,
	tunnel_remote_ip TEXT,
	gre_key          TEXT,
	status           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS endpoint_resources (
	endpoint_id INTEGER NOT NULL REFERENCES endpoints(id),
	kind        TEXT NOT NULL,
	resource_id INTEGER NOT NULL,
	PRIMARY KEY (endpoint_id, kind, resource_id)
);

CREATE TABLE IF NOT EXISTS flow_rules (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_flow_rule_id TEXT NOT NULL,
	internal_id        TEXT,
	session_id         TEXT NOT NULL REFERENCES sessions(session_id),
	switch_id          TEXT,
	type               TEXT NOT NULL,
	priority           INTEGER NOT NULL DEFAULT 0,
	status             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flow_rules_session ON flow_rules(session_id, graph_flow_rule_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_flow_rules_switch_internal ON flow_rules(switch_id, internal_id) WHERE internal_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS matches (
	flow_rule_id   INTEGER PRIMARY KEY REFERENCES flow_rules(id),
	port_in        TEXT,
	port_in_type   TEXT,
	ether_type     INTEGER,
	vlan_id        INTEGER,
	vlan_priority  INTEGER,
	src_mac        TEXT,
	dst_mac        TEXT,
	src_ip         TEXT,
	dst_ip         TEXT,
	tos            INTEGER,
	src_port       INTEGER,
	dst_port       INTEGER,
	protocol       INTEGER
);
CREATE INDEX IF NOT EXISTS idx_matches_lookup ON matches(port_in);

CREATE TABLE IF NOT EXISTS actions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	flow_rule_id     INTEGER NOT NULL REFERENCES flow_rules(id),
	ord              INTEGER NOT NULL,
	kind             TEXT NOT NULL,
	output_to        TEXT,
	output_to_port   TEXT,
	output_to_controller INTEGER NOT NULL DEFAULT 0,
	output_to_queue  TEXT,
	set_vlan_id      INTEGER,
	set_vlan_priority INTEGER,
	set_eth_src      TEXT,
	set_eth_dst      TEXT,
	set_ip_src       TEXT,
	set_ip_dst       TEXT,
	set_ip_tos       INTEGER,
	set_l4_src_port  INTEGER,
	set_l4_dst_port  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_actions_flow ON actions(flow_rule_id, ord);

CREATE TABLE IF NOT EXISTS vnfs (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_vnf_id          TEXT NOT NULL,
	session_id            TEXT NOT NULL REFERENCES sessions(session_id),
	name                  TEXT,
	template              TEXT,
	functional_capability TEXT,
	application_name      TEXT,
	status                TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vnfs_session ON vnfs(session_id, graph_vnf_id);

CREATE TABLE IF NOT EXISTS vnf_ports (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_port_id TEXT,
	vnf_id        INTEGER NOT NULL REFERENCES vnfs(id),
	name          TEXT
);

-- Vlan-tracking rows recording the (switch, port_in) a flow was installed
-- on with a null ingress vlan; isDirectEndpoint derives "direct endpoint"
-- from the presence of such a row, written whenever an external flow rule
-- matching a port with no vlan_id is installed (see
-- DESIGN.md's resolution of the isDirectEndpoint open question).
CREATE TABLE IF NOT EXISTS vlan_tracking (
	flow_rule_id INTEGER PRIMARY KEY REFERENCES flow_rules(id),
	switch_id    TEXT NOT NULL,
	port_in      TEXT NOT NULL,
	vlan_in      INTEGER
);
CREATE INDEX IF NOT EXISTS idx_vlan_tracking_lookup ON vlan_tracking(switch_id, port_in);
`
