package handlers

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"personal-channel-bot/utils"
)

func (h *Handler) handleStatus(ctx context.Context, i *discordgo.InteractionCreate) {
	if !h.requireAdmin(i) {
		return
	}
	utils.SendEmbedResponse(h.Platform, i, h.statusEmbed(ctx, i.GuildID))
}

func (h *Handler) statusEmbed(ctx context.Context, guildID string) *discordgo.MessageEmbed {
	storeMode := "🟢 connected"
	owned := "-"
	if !h.Store.Available() {
		storeMode = "🔴 degraded"
	} else if id, err := utils.ParseID(guildID); err == nil {
		if n, err := h.Store.CountOwnedChannels(ctx, id); err == nil {
			owned = fmt.Sprintf("%d", n)
		}
	}

	cpuCount, _ := cpu.CountsWithContext(ctx, true)
	cpuUsage := "-"
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", pct[0])
	}
	memory := "-"
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memory = fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024)
	}
	osVersion, uptime := "-", "-"
	if info, err := host.InfoWithContext(ctx); err == nil {
		osVersion = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		uptime = (time.Duration(info.Uptime) * time.Second).String()
	}
	latency := "-"
	if h.Latency != nil {
		latency = h.Latency().String()
	}

	return &discordgo.MessageEmbed{
		Title: "Bot status",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🗄️ Database", Value: storeMode, Inline: true},
			{Name: "📁 Personal channels", Value: owned, Inline: true},
			{Name: "⏱️ Gateway latency", Value: latency, Inline: true},
			{Name: "💻 OS", Value: osVersion, Inline: true},
			{Name: "⏳ Host uptime", Value: uptime, Inline: true},
			{Name: "🐹 Go version", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU usage", Value: cpuUsage, Inline: true},
			{Name: "🧠 Memory", Value: memory, Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Status at %s", time.Now().Format("15:04")),
		},
	}
}
