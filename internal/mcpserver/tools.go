// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jenkmcp/jenkmcp/internal/jenkins"
	"github.com/jenkmcp/jenkmcp/internal/recovery"
	"github.com/jenkmcp/jenkmcp/internal/tool"
)

// jsonText marshals v for the text payload of a tool result.
func jsonText(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

// RegisterAll binds the Jenkins client and recovery engine to the tool
// registry. Tier assignments: queries are read, build triggers are
// build, job mutations are write, and anything destructive or
// agent-affecting is dangerous.
func RegisterAll(reg *tool.Registry, c *jenkins.Client, eng *recovery.Engine) {
	registerJobTools(reg, c)
	registerBuildTools(reg, c)
	registerNodeTools(reg, c)
	registerServerTools(reg, c)
	registerRecoveryTools(reg, eng)
}

func registerJobTools(reg *tool.Registry, c *jenkins.Client) {
	reg.Register(&tool.Tool{
		Name:        "list_jobs",
		Description: "List all jobs on the Jenkins server with name, URL, color and buildable flag.",
		Tier:        tool.TierRead,
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			jobs, err := c.ListJobs(ctx)
			if err != nil {
				return "", err
			}
			return jsonText(jobs)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "get_job",
		Description: "Get detail for one job. Folder-qualified names use slashes, e.g. team/app.",
		Tier:        tool.TierRead,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			job, err := c.GetJob(ctx, name)
			if err != nil {
				return "", err
			}
			return jsonText(job)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "get_job_config",
		Description: "Fetch a job's config.xml.",
		Tier:        tool.TierRead,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			return c.GetJobConfig(ctx, name)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "create_job",
		Description: "Create a job from a config.xml document.",
		Tier:        tool.TierWrite,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
			{Name: "config_xml", Type: "string", Description: "Full config.xml for the new job", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			configXML, err := args.String("config_xml")
			if err != nil {
				return "", err
			}
			if err := c.CreateJob(ctx, name, configXML); err != nil {
				return "", err
			}
			return fmt.Sprintf("created job %q", name), nil
		},
	})

	reg.Register(&tool.Tool{
		Name:        "update_job",
		Description: "Replace an existing job's config.xml.",
		Tier:        tool.TierWrite,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
			{Name: "config_xml", Type: "string", Description: "Full replacement config.xml", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			configXML, err := args.String("config_xml")
			if err != nil {
				return "", err
			}
			if err := c.UpdateJob(ctx, name, configXML); err != nil {
				return "", err
			}
			return fmt.Sprintf("updated job %q", name), nil
		},
	})

	reg.Register(&tool.Tool{
		Name:        "delete_job",
		Description: "Delete a job. This cannot be undone.",
		Tier:        tool.TierDangerous,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			if err := c.DeleteJob(ctx, name); err != nil {
				return "", err
			}
			return fmt.Sprintf("deleted job %q", name), nil
		},
	})
}

func registerBuildTools(reg *tool.Registry, c *jenkins.Client) {
	reg.Register(&tool.Tool{
		Name:        "trigger_build",
		Description: "Trigger a build, optionally with parameters and a quiet-period delay. Returns the queue item id.",
		Tier:        tool.TierBuild,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
			{Name: "parameters", Type: "object", Description: "Build parameters as string key/value pairs"},
			{Name: "delay", Type: "number", Description: "Quiet period in seconds before the build starts"},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			params := map[string]string{}
			for k, v := range args.MapOr("parameters") {
				params[k] = fmt.Sprint(v)
			}
			queueID, err := c.TriggerBuild(ctx, name, params, args.IntOr("delay", 0))
			if err != nil {
				return "", err
			}
			return jsonText(map[string]any{"queued": true, "queue_id": queueID})
		},
	})

	reg.Register(&tool.Tool{
		Name:        "get_build",
		Description: "Get detail for one build. The build argument is a number or a selector like lastBuild or lastSuccessfulBuild.",
		Tier:        tool.TierRead,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
			{Name: "build", Type: "string", Description: "Build number or selector, default lastBuild"},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			b, err := c.GetBuild(ctx, name, args.StringOr("build", "lastBuild"))
			if err != nil {
				return "", err
			}
			return jsonText(b)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "get_build_logs",
		Description: "Fetch console output for a build. Progressive mode returns a page starting at the given byte offset plus the offset for the next poll.",
		Tier:        tool.TierRead,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
			{Name: "build", Type: "string", Description: "Build number or selector, default lastBuild"},
			{Name: "start", Type: "number", Description: "Byte offset for progressive mode"},
			{Name: "progressive", Type: "boolean", Description: "Page through the log instead of fetching it whole"},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			log, err := c.GetBuildLogs(ctx, name,
				args.StringOr("build", "lastBuild"),
				int64(args.IntOr("start", 0)),
				args.BoolOr("progressive", false))
			if err != nil {
				return "", err
			}
			return jsonText(log)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "stop_build",
		Description: "Abort a running build.",
		Tier:        tool.TierDangerous,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Job name, optionally folder-qualified", Required: true},
			{Name: "build", Type: "string", Description: "Build number or selector, default lastBuild"},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			name, err := args.String("name")
			if err != nil {
				return "", err
			}
			ref := args.StringOr("build", "lastBuild")
			if err := c.StopBuild(ctx, name, ref); err != nil {
				return "", err
			}
			return fmt.Sprintf("stopped build %s of %q", ref, name), nil
		},
	})
}

func registerNodeTools(reg *tool.Registry, c *jenkins.Client) {
	reg.Register(&tool.Tool{
		Name:        "list_nodes",
		Description: "List all agent nodes with their online/offline state.",
		Tier:        tool.TierRead,
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			nodes, err := c.ListNodes(ctx)
			if err != nil {
				return "", err
			}
			return jsonText(nodes)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "get_node_status",
		Description: "Get the status of one agent node. Omit the name for the built-in node.",
		Tier:        tool.TierRead,
		Params: []tool.Param{
			{Name: "name", Type: "string", Description: "Node name; empty means the built-in node"},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			node, err := c.GetNodeStatus(ctx, args.StringOr("name", ""))
			if err != nil {
				return "", err
			}
			return jsonText(node)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "get_queue",
		Description: "List items waiting in the build queue.",
		Tier:        tool.TierRead,
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			items, err := c.GetQueue(ctx)
			if err != nil {
				return "", err
			}
			return jsonText(items)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "cancel_queue_item",
		Description: "Cancel a pending item in the build queue.",
		Tier:        tool.TierDangerous,
		Params: []tool.Param{
			{Name: "id", Type: "number", Description: "Queue item id from trigger_build or get_queue", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			id, err := args.Int("id")
			if err != nil {
				return "", err
			}
			if err := c.CancelQueueItem(ctx, int64(id)); err != nil {
				return "", err
			}
			return fmt.Sprintf("cancelled queue item %d", id), nil
		},
	})
}

func registerServerTools(reg *tool.Registry, c *jenkins.Client) {
	reg.Register(&tool.Tool{
		Name:        "get_version",
		Description: "Report the Jenkins server version and controller detail.",
		Tier:        tool.TierRead,
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			info, err := c.GetVersion(ctx)
			if err != nil {
				return "", err
			}
			return jsonText(info)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "who_am_i",
		Description: "Report the authenticated identity and its granted authorities.",
		Tier:        tool.TierRead,
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			id, err := c.WhoAmI(ctx)
			if err != nil {
				return "", err
			}
			return jsonText(id)
		},
	})
}

func registerRecoveryTools(reg *tool.Registry, eng *recovery.Engine) {
	reg.Register(&tool.Tool{
		Name:        "get_agent_diagnostics",
		Description: "Collect connection status, system metrics and recent build history for an agent.",
		Tier:        tool.TierRead,
		Params: []tool.Param{
			{Name: "node", Type: "string", Description: "Agent node name", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			node, err := args.String("node")
			if err != nil {
				return "", err
			}
			diag, err := eng.Diagnose(ctx, node)
			if err != nil {
				return "", err
			}
			return jsonText(diag)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "detect_agent_issues",
		Description: "Diagnose an agent, classify issues by severity and recommend a recovery action with a confidence score.",
		Tier:        tool.TierRead,
		Params: []tool.Param{
			{Name: "node", Type: "string", Description: "Agent node name", Required: true},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			node, err := args.String("node")
			if err != nil {
				return "", err
			}
			report, err := eng.DetectIssues(ctx, node)
			if err != nil {
				return "", err
			}
			return jsonText(report)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "recover_agent",
		Description: "Run the agent recovery workflow: soft reconnect attempts, then a hard service restart if still unhealthy.",
		Tier:        tool.TierDangerous,
		Params: []tool.Param{
			{Name: "node", Type: "string", Description: "Agent node name", Required: true},
			{Name: "strategy", Type: "string", Description: "soft, hard or auto (default auto)"},
			{Name: "max_retries", Type: "number", Description: "Soft reconnect attempts before escalating"},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			node, err := args.String("node")
			if err != nil {
				return "", err
			}
			attempt, err := eng.Recover(ctx, node,
				recovery.Strategy(args.StringOr("strategy", string(recovery.StrategyAuto))),
				args.IntOr("max_retries", 0))
			if err != nil {
				return "", err
			}
			return jsonText(attempt)
		},
	})

	reg.Register(&tool.Tool{
		Name:        "restart_agent",
		Description: "Restart the agent's OS service via the script console. Requires administer permission on the Jenkins server.",
		Tier:        tool.TierDangerous,
		Params: []tool.Param{
			{Name: "node", Type: "string", Description: "Agent node name", Required: true},
			{Name: "platform", Type: "string", Description: "linux or windows; auto-detected when omitted"},
			{Name: "command", Type: "string", Description: "Override the default restart command"},
		},
		Handler: func(ctx context.Context, args tool.Args) (string, error) {
			node, err := args.String("node")
			if err != nil {
				return "", err
			}
			result, err := eng.RestartAgent(ctx, node,
				recovery.Platform(args.StringOr("platform", "")),
				args.StringOr("command", ""))
			if err != nil {
				return "", err
			}
			return jsonText(result)
		},
	})
}
