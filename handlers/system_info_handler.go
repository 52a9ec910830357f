package handlers

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"admin-bot/bot"
	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	// Get CPU info
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	cpuUsage := "n/a"
	if len(cpuPercent) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}

	// Get memory info
	memory := "n/a"
	if vm, err := mem.VirtualMemory(); err == nil {
		memory = fmt.Sprintf("%.1f%% (%s / %s)", vm.UsedPercent, humanize.IBytes(vm.Used), humanize.IBytes(vm.Total))
	}

	// Get host info
	platform, kernel := "n/a", "n/a"
	if hostInfo, err := host.Info(); err == nil {
		platform = hostInfo.Platform + " " + hostInfo.PlatformVersion
		kernel = hostInfo.KernelVersion
	}

	dbSize := "n/a"
	if fi, err := os.Stat(b.GetConfig().DatabasePath); err == nil {
		dbSize = humanize.IBytes(uint64(fi.Size()))
	}

	nextExpiry := "无"
	if at, ok := b.Expiry.ArmedAt(); ok {
		nextExpiry = fmt.Sprintf("<t:%d:R>", at.Unix())
	}
	guardState := "Redis"
	if g, ok := b.Guard.(*utils.OpGuard); ok {
		guardState = fmt.Sprintf("本地 (%d 个进行中)", g.Held())
	}

	embed := &discordgo.MessageEmbed{
		Title: "系统信息",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS 版本", Value: platform, Inline: true},
			{Name: "🔧 内核版本", Value: kernel, Inline: true},
			{Name: "🐹 Go 版本", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPU 数量", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU 使用率", Value: cpuUsage, Inline: true},
			{Name: "🧠 系统内存", Value: memory, Inline: true},
			{Name: "🗃️ 数据库大小", Value: dbSize, Inline: true},
			{Name: "⏱️ WebSocket 延迟", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "⏳ 运行时间", Value: humanize.RelTime(b.StartedAt, time.Now(), "", ""), Inline: true},
			{Name: "⏰ 下次到期处理", Value: nextExpiry, Inline: true},
			{Name: "🔒 清理锁", Value: guardState, Inline: true},
			{Name: "📜 已注册命令", Value: fmt.Sprintf("%d", b.CommandCount()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("系统监控・今天%s", time.Now().Format("15:04")),
		},
	}

	if err := utils.SendEmbedResponse(s, i, embed); err != nil {
		b.Logger.Warn("failed to send system info", zap.Error(err))
	}
}
