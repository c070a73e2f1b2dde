package store

import (
	"context"
	"database/sql"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/nffg"
)

// insertGraphEntities writes every endpoint, port, flow rule and VNF in
// graph under sessionID, each starting life with status=new.
func insertGraphEntities(ctx context.Context, tx *sql.Tx, sessionID string, graph nffg.NFFG) error {
	for _, ep := range graph.Endpoints {
		if err := insertEndpoint(ctx, tx, sessionID, ep); err != nil {
			return err
		}
	}
	for _, vnf := range graph.Vnfs {
		if err := insertVnf(ctx, tx, sessionID, vnf); err != nil {
			return err
		}
	}
	for _, f := range graph.FlowRules {
		if _, err := insertFlowRule(ctx, tx, sessionID, f); err != nil {
			return err
		}
	}
	return nil
}

func insertEndpoint(ctx context.Context, tx *sql.Tx, sessionID string, ep nffg.Endpoint) error {
	status := ep.Status
	if status == "" {
		status = nffg.StatusNew
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO endpoints (graph_endpoint_id, session_id, name, type, status) VALUES (?, ?, ?, ?, ?)`,
		ep.GraphID, sessionID, ep.Name, string(ep.Kind), string(status))
	if err != nil {
		return apperrors.StorageError("insert endpoint", err)
	}
	endpointRowID, err := res.LastInsertId()
	if err != nil {
		return apperrors.StorageError("insert endpoint: last insert id", err)
	}

	if ep.Port != nil {
		portRowID, err := insertPort(ctx, tx, sessionID, *ep.Port)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO endpoint_resources (endpoint_id, kind, resource_id) VALUES (?, ?, ?)`,
			endpointRowID, string(nffg.ResourcePort), portRowID); err != nil {
			return apperrors.StorageError("link endpoint to port", err)
		}
	}
	return nil
}

func insertPort(ctx context.Context, tx *sql.Tx, sessionID string, p nffg.Port) (int64, error) {
	status := p.Status
	if status == "" {
		status = nffg.StatusNew
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ports (graph_port_id, session_id, switch_id, vlan_id, ipv4_address, tunnel_remote_ip, gre_key, status)
		 VALUES (?, ?, ?, NULLIF(?, 0), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)`,
		p.GraphPortID, sessionID, p.SwitchID, p.VlanID, p.IPv4Address, p.TunnelRemoteIP, p.GreKey, string(status))
	if err != nil {
		return 0, apperrors.StorageError("insert port", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.StorageError("insert port: last insert id", err)
	}
	return id, nil
}

func insertVnf(ctx context.Context, tx *sql.Tx, sessionID string, v nffg.Vnf) error {
	status := v.Status
	if status == "" {
		status = nffg.StatusNew
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO vnfs (graph_vnf_id, session_id, name, template, functional_capability, application_name, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.GraphVnfID, sessionID, v.Name, v.Template, v.FunctionalCapability, v.ApplicationName, string(status))
	if err != nil {
		return apperrors.StorageError("insert vnf", err)
	}
	vnfRowID, err := res.LastInsertId()
	if err != nil {
		return apperrors.StorageError("insert vnf: last insert id", err)
	}
	for _, port := range v.Ports {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vnf_ports (graph_port_id, vnf_id, name) VALUES (?, ?, ?)`,
			port.GraphPortID, vnfRowID, port.Name); err != nil {
			return apperrors.StorageError("insert vnf port", err)
		}
	}
	return nil
}

// insertFlowRule writes a flow rule (logical or external) and its match and
// actions, returning its internal row id.
func insertFlowRule(ctx context.Context, tx *sql.Tx, sessionID string, f nffg.FlowRule) (int64, error) {
	status := f.Status
	if status == "" {
		status = nffg.StatusNew
	}
	ftype := f.Type
	if ftype == "" {
		ftype = nffg.FlowRuleLogical
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO flow_rules (graph_flow_rule_id, internal_id, session_id, switch_id, type, priority, status)
		 VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?)`,
		f.GraphFlowRuleID, f.InternalID, sessionID, f.SwitchID, string(ftype), f.Priority, string(status))
	if err != nil {
		return 0, apperrors.StorageError("insert flow rule", err)
	}
	flowRowID, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.StorageError("insert flow rule: last insert id", err)
	}

	m := f.Match
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matches (flow_rule_id, port_in, port_in_type, ether_type, vlan_id, vlan_priority,
			src_mac, dst_mac, src_ip, dst_ip, tos, src_port, dst_port, protocol)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		flowRowID, m.PortIn, string(m.PortInType), nullInt(m.EtherType), nullInt(m.VlanID), nullInt(m.VlanPriority),
		nullStr(m.SrcMAC), nullStr(m.DstMAC), nullStr(m.SrcIP), nullStr(m.DstIP),
		nullInt(m.Tos), nullInt(m.SrcPort), nullInt(m.DstPort), nullInt(m.Protocol)); err != nil {
		return 0, apperrors.StorageError("insert match", err)
	}

	for i, a := range f.Actions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO actions (flow_rule_id, ord, kind, output_to, output_to_port, output_to_controller,
				output_to_queue, set_vlan_id, set_vlan_priority, set_eth_src, set_eth_dst, set_ip_src, set_ip_dst,
				set_ip_tos, set_l4_src_port, set_l4_dst_port)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			flowRowID, i, string(a.Kind), nullStr(a.OutputTo), nullStr(a.OutputToPort), boolToInt(a.OutputToController),
			nullStr(a.OutputToQueue), a.SetVlanID, a.SetVlanPriority, nullStr(a.SetEthSrc), nullStr(a.SetEthDst),
			nullStr(a.SetIPSrc), nullStr(a.SetIPDst), a.SetIPTos, a.SetL4SrcPort, a.SetL4DstPort); err != nil {
			return 0, apperrors.StorageError("insert action", err)
		}
	}

	if ftype == nffg.FlowRuleExternal && m.PortInType == nffg.PortInPort && m.VlanID == nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vlan_tracking (flow_rule_id, switch_id, port_in, vlan_in) VALUES (?, ?, ?, NULL)`,
			flowRowID, f.SwitchID, m.PortIn); err != nil {
			return 0, apperrors.StorageError("insert vlan tracking row", err)
		}
	}

	return flowRowID, nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// loadGraph reconstructs the logical NF-FG a session owns. When
// includeExternal is true, type=external physical flow rules are included
// too (used internally by realisation bookkeeping); getGraph/loadGraph
// callers always pass false.
func loadGraph(ctx context.Context, q querier, sessionID string, includeExternal bool) (nffg.NFFG, error) {
	graph := nffg.NFFG{ID: sessionID}

	endpoints, err := loadEndpoints(ctx, q, sessionID)
	if err != nil {
		return graph, err
	}
	graph.Endpoints = endpoints

	vnfs, err := loadVnfs(ctx, q, sessionID)
	if err != nil {
		return graph, err
	}
	graph.Vnfs = vnfs

	flowRules, err := loadFlowRules(ctx, q, sessionID, includeExternal)
	if err != nil {
		return graph, err
	}
	graph.FlowRules = flowRules

	return graph, nil
}

func loadEndpoints(ctx context.Context, q querier, sessionID string) ([]nffg.Endpoint, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, graph_endpoint_id, name, type, status FROM endpoints WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, apperrors.StorageError("query endpoints", err)
	}
	defer rows.Close()

	var out []nffg.Endpoint
	for rows.Next() {
		var (
			rowID          int64
			gid, name      string
			kind, status   string
		)
		if err := rows.Scan(&rowID, &gid, &name, &kind, &status); err != nil {
			return nil, apperrors.StorageError("scan endpoint row", err)
		}
		ep := nffg.Endpoint{
			ID:        rowID,
			GraphID:   gid,
			SessionID: sessionID,
			Name:      name,
			Kind:      nffg.EndpointKind(kind),
			Status:    nffg.Status(status),
		}
		port, err := loadEndpointPort(ctx, q, rowID, sessionID)
		if err != nil {
			return nil, err
		}
		ep.Port = port
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("iterate endpoints", err)
	}
	return out, nil
}

func loadEndpointPort(ctx context.Context, q querier, endpointRowID int64, sessionID string) (*nffg.Port, error) {
	var portRowID int64
	err := q.QueryRowContext(ctx,
		`SELECT resource_id FROM endpoint_resources WHERE endpoint_id = ? AND kind = ?`,
		endpointRowID, string(nffg.ResourcePort)).Scan(&portRowID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StorageError("lookup endpoint port resource", err)
	}

	var (
		p                                                    nffg.Port
		graphPortID, switchID, ipv4, tunnelIP, greKey, status sql.NullString
		vlanID                                                sql.NullInt64
	)
	err = q.QueryRowContext(ctx,
		`SELECT graph_port_id, switch_id, vlan_id, ipv4_address, tunnel_remote_ip, gre_key, status
		 FROM ports WHERE id = ?`, portRowID).
		Scan(&graphPortID, &switchID, &vlanID, &ipv4, &tunnelIP, &greKey, &status)
	if err != nil {
		return nil, apperrors.StorageError("load port", err)
	}
	p = nffg.Port{
		ID:             portRowID,
		GraphPortID:    graphPortID.String,
		SessionID:      sessionID,
		SwitchID:       switchID.String,
		VlanID:         int(vlanID.Int64),
		IPv4Address:    ipv4.String,
		TunnelRemoteIP: tunnelIP.String,
		GreKey:         greKey.String,
		Status:         nffg.Status(status.String),
	}
	return &p, nil
}

func loadVnfs(ctx context.Context, q querier, sessionID string) ([]nffg.Vnf, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, graph_vnf_id, name, template, functional_capability, application_name, status
		 FROM vnfs WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, apperrors.StorageError("query vnfs", err)
	}
	defer rows.Close()

	var out []nffg.Vnf
	for rows.Next() {
		var v nffg.Vnf
		var status string
		if err := rows.Scan(&v.ID, &v.GraphVnfID, &v.Name, &v.Template, &v.FunctionalCapability, &v.ApplicationName, &status); err != nil {
			return nil, apperrors.StorageError("scan vnf row", err)
		}
		v.SessionID = sessionID
		v.Status = nffg.Status(status)
		ports, err := loadVnfPorts(ctx, q, v.ID)
		if err != nil {
			return nil, err
		}
		v.Ports = ports
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("iterate vnfs", err)
	}
	return out, nil
}

func loadVnfPorts(ctx context.Context, q querier, vnfRowID int64) ([]nffg.VnfPort, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, graph_port_id, name FROM vnf_ports WHERE vnf_id = ?`, vnfRowID)
	if err != nil {
		return nil, apperrors.StorageError("query vnf ports", err)
	}
	defer rows.Close()

	var out []nffg.VnfPort
	for rows.Next() {
		var p nffg.VnfPort
		var gid sql.NullString
		if err := rows.Scan(&p.ID, &gid, &p.Name); err != nil {
			return nil, apperrors.StorageError("scan vnf port row", err)
		}
		p.VnfID = vnfRowID
		p.GraphPortID = gid.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("iterate vnf ports", err)
	}
	return out, nil
}

func loadFlowRules(ctx context.Context, q querier, sessionID string, includeExternal bool) ([]nffg.FlowRule, error) {
	query := `SELECT id, graph_flow_rule_id, internal_id, switch_id, type, priority, status
	          FROM flow_rules WHERE session_id = ?`
	if !includeExternal {
		query += ` AND type != 'external'`
	}
	rows, err := q.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, apperrors.StorageError("query flow rules", err)
	}
	defer rows.Close()

	var out []nffg.FlowRule
	for rows.Next() {
		var (
			rowID                   int64
			gid                     string
			internalID, switchID    sql.NullString
			ftype, status           string
			priority                int
		)
		if err := rows.Scan(&rowID, &gid, &internalID, &switchID, &ftype, &priority, &status); err != nil {
			return nil, apperrors.StorageError("scan flow rule row", err)
		}
		f := nffg.FlowRule{
			ID:              rowID,
			GraphFlowRuleID: gid,
			InternalID:      internalID.String,
			SessionID:       sessionID,
			SwitchID:        switchID.String,
			Type:            nffg.FlowRuleType(ftype),
			Priority:        priority,
			Status:          nffg.Status(status),
		}
		match, err := loadMatch(ctx, q, rowID)
		if err != nil {
			return nil, err
		}
		f.Match = match
		actions, err := loadActions(ctx, q, rowID)
		if err != nil {
			return nil, err
		}
		f.Actions = actions
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("iterate flow rules", err)
	}
	return out, nil
}

func loadMatch(ctx context.Context, q querier, flowRowID int64) (nffg.Match, error) {
	var (
		m                                         nffg.Match
		portIn, portInType, srcMAC, dstMAC        sql.NullString
		srcIP, dstIP                              sql.NullString
		etherType, vlanID, vlanPriority            sql.NullInt64
		tos, srcPort, dstPort, protocol           sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT port_in, port_in_type, ether_type, vlan_id, vlan_priority, src_mac, dst_mac, src_ip, dst_ip,
			tos, src_port, dst_port, protocol
		 FROM matches WHERE flow_rule_id = ?`, flowRowID).
		Scan(&portIn, &portInType, &etherType, &vlanID, &vlanPriority, &srcMAC, &dstMAC, &srcIP, &dstIP,
			&tos, &srcPort, &dstPort, &protocol)
	if err != nil {
		return m, apperrors.StorageError("load match", err)
	}
	m.PortIn = portIn.String
	m.PortInType = nffg.PortInType(portInType.String)
	m.SrcMAC = srcMAC.String
	m.DstMAC = dstMAC.String
	m.SrcIP = srcIP.String
	m.DstIP = dstIP.String
	m.EtherType = nullInt64ToPtr(etherType)
	m.VlanID = nullInt64ToPtr(vlanID)
	m.VlanPriority = nullInt64ToPtr(vlanPriority)
	m.Tos = nullInt64ToPtr(tos)
	m.SrcPort = nullInt64ToPtr(srcPort)
	m.DstPort = nullInt64ToPtr(dstPort)
	m.Protocol = nullInt64ToPtr(protocol)
	return m, nil
}

func nullInt64ToPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func loadActions(ctx context.Context, q querier, flowRowID int64) ([]nffg.Action, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT kind, output_to, output_to_port, output_to_controller, output_to_queue, set_vlan_id,
			set_vlan_priority, set_eth_src, set_eth_dst, set_ip_src, set_ip_dst, set_ip_tos, set_l4_src_port,
			set_l4_dst_port
		 FROM actions WHERE flow_rule_id = ? ORDER BY ord`, flowRowID)
	if err != nil {
		return nil, apperrors.StorageError("query actions", err)
	}
	defer rows.Close()

	var out []nffg.Action
	for rows.Next() {
		var (
			a                                                  nffg.Action
			kind                                               string
			outputTo, outputToPort, outputToQueue              sql.NullString
			setEthSrc, setEthDst, setIPSrc, setIPDst            sql.NullString
			outputToController                                int
		)
		if err := rows.Scan(&kind, &outputTo, &outputToPort, &outputToController, &outputToQueue, &a.SetVlanID,
			&a.SetVlanPriority, &setEthSrc, &setEthDst, &setIPSrc, &setIPDst, &a.SetIPTos, &a.SetL4SrcPort,
			&a.SetL4DstPort); err != nil {
			return nil, apperrors.StorageError("scan action row", err)
		}
		a.Kind = nffg.ActionKind(kind)
		a.OutputTo = outputTo.String
		a.OutputToPort = outputToPort.String
		a.OutputToQueue = outputToQueue.String
		a.OutputToController = outputToController != 0
		a.SetEthSrc = setEthSrc.String
		a.SetEthDst = setEthDst.String
		a.SetIPSrc = setIPSrc.String
		a.SetIPDst = setIPDst.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("iterate actions", err)
	}
	return out, nil
}
