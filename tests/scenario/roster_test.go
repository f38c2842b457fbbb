// Package scenario 针对典型名册形态做可行性诊断测试
package scenario

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/escala/escala/pkg/diagnostics"
	"github.com/escala/escala/pkg/service"
)

func newService(t *testing.T) *service.SchedulerService {
	t.Helper()
	dir := t.TempDir()
	svc, err := service.NewSchedulerService(
		filepath.Join(dir, "escala.yaml"),
		filepath.Join(dir, "history.json"))
	if err != nil {
		t.Fatalf("服务初始化失败: %v", err)
	}
	return svc
}

func hasFinding(findings []diagnostics.Finding, code diagnostics.FindingCode) bool {
	for _, f := range findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

// TestNoNightWorkers 名册中没有夜班资格员工时诊断应报错
func TestNoNightWorkers(t *testing.T) {
	svc := newService(t)
	for _, name := range []string{"Ana", "Bruno", "Carla", "Diogo", "Eva", "Filipe"} {
		if _, err := svc.AddWorker(name, false, 12); err != nil {
			t.Fatalf("添加员工失败: %v", err)
		}
	}

	report, err := svc.Diagnose(context.Background(), 2026, time.March)
	if err != nil {
		t.Fatalf("诊断出错: %v", err)
	}
	if len(report.Errors()) == 0 {
		t.Fatal("无夜班资格员工时应有 error 级结论")
	}
	if !hasFinding(report.Errors(), diagnostics.CodeNoNightWorkers) {
		t.Errorf("应报告 no_night_workers, 实际 %v", report.Errors())
	}
}

// TestUncoverableShift 唯一员工声明不可用的日期应报无人可排
func TestUncoverableShift(t *testing.T) {
	svc := newService(t)
	if _, err := svc.AddWorker("Ana", true, 18); err != nil {
		t.Fatalf("添加员工失败: %v", err)
	}
	if err := svc.SetUnavailable("Ana", []string{"2026-03-05"}); err != nil {
		t.Fatalf("声明不可用失败: %v", err)
	}

	report, err := svc.Diagnose(context.Background(), 2026, time.March)
	if err != nil {
		t.Fatalf("诊断出错: %v", err)
	}
	if !hasFinding(report.Errors(), diagnostics.CodeUncoverableShift) {
		t.Errorf("应报告 uncoverable_shift, 实际 %v", report.Errors())
	}
}

// TestPinConflict 两名员工被声明到同一具体班次时应报固定分配冲突
func TestPinConflict(t *testing.T) {
	svc := newService(t)
	for _, name := range []string{"Ana", "Bruno", "Carla", "Diogo"} {
		if _, err := svc.AddWorker(name, true, 12); err != nil {
			t.Fatalf("添加员工失败: %v", err)
		}
	}
	if err := svc.SetRequired("Ana", []string{"2026-03-02 M1"}); err != nil {
		t.Fatalf("声明失败: %v", err)
	}
	if err := svc.SetRequired("Bruno", []string{"2026-03-02 M1"}); err != nil {
		t.Fatalf("声明失败: %v", err)
	}

	report, err := svc.Diagnose(context.Background(), 2026, time.March)
	if err != nil {
		t.Fatalf("诊断出错: %v", err)
	}
	if !hasFinding(report.Errors(), diagnostics.CodePinConflict) {
		t.Errorf("应报告 pin_conflict, 实际 %v", report.Errors())
	}
}

// TestHealthyRoster 资源充足的名册诊断不应有 error 级结论
func TestHealthyRoster(t *testing.T) {
	svc := newService(t)
	for _, name := range []string{"Ana", "Bruno", "Carla", "Diogo", "Eva", "Filipe", "Gil", "Helena"} {
		if _, err := svc.AddWorker(name, true, 12); err != nil {
			t.Fatalf("添加员工失败: %v", err)
		}
	}

	report, err := svc.Diagnose(context.Background(), 2026, time.March)
	if err != nil {
		t.Fatalf("诊断出错: %v", err)
	}
	if errs := report.Errors(); len(errs) != 0 {
		t.Errorf("健康名册不应有 error 级结论, 实际 %v", errs)
	}
}
